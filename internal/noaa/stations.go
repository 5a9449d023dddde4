package noaa

import "sort"

// Location is the city and state a station reports for.
type Location struct {
	City  string
	State string
}

// Stations maps GHCND station ids to their location. The set covers the
// states with the highest natural gas consumption.
var Stations = map[string]Location{
	"GHCND:USW00023174": {"Los Angeles", "California"},
	"GHCND:USW00023188": {"San Diego", "California"},
	"GHCND:USW00023234": {"San Francisco", "California"},
	"GHCND:USW00023232": {"Sacramento", "California"},
	"GHCND:USW00012839": {"Miami", "Florida"},
	"GHCND:USW00012842": {"Tampa", "Florida"},
	"GHCND:USW00012815": {"Orlando", "Florida"},
	"GHCND:USW00013889": {"Jacksonville", "Florida"},
	"GHCND:USW00094846": {"Chicago", "Illinois"},
	"GHCND:USW00013994": {"St Louis", "Illinois"},
	"GHCND:USW00012916": {"New Orleans", "Louisiana"},
	"GHCND:USW00013970": {"Baton Rouge", "Louisiana"},
	"GHCND:USW00013957": {"Shreveport", "Louisiana"},
	"GHCND:USW00094847": {"Detroit", "Michigan"},
	"GHCND:USW00094860": {"Grand Rapids", "Michigan"},
	"GHCND:USW00014734": {"New York", "New York"},
	"GHCND:USW00014733": {"Buffalo", "New York"},
	"GHCND:USW00014820": {"Cleveland", "Ohio"},
	"GHCND:USW00014821": {"Columbus", "Ohio"},
	"GHCND:USW00093814": {"Cincinnati", "Ohio"},
	"GHCND:USW00013739": {"Philadelphia", "Pennsylvania"},
	"GHCND:USW00094823": {"Pittsburgh", "Pennsylvania"},
	"GHCND:USW00012960": {"Houston", "Texas"},
	"GHCND:USW00013960": {"Dallas", "Texas"},
	"GHCND:USW00012921": {"San Antonio", "Texas"},
	"GHCND:USW00013904": {"Austin", "Texas"},
}

// StationIDs returns the station ids in a stable order.
func StationIDs() []string {
	ids := make([]string, 0, len(Stations))
	for id := range Stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

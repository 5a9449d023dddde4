package table

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the table as an array of records, each object's keys
// in column order.
func (t *Table) MarshalJSON() ([]byte, error) {
	keys := make([][]byte, len(t.columns))
	for j, c := range t.columns {
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		keys[j] = k
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range t.rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, v := range r {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[j])
			buf.WriteByte(':')
			enc, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode %q row %d: %w", t.columns[j], i, err)
			}
			buf.Write(enc)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an array of records. Columns are ordered by first
// appearance; a key missing from a record is nil in that row.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode table: %w", err)
	}
	if tok == nil {
		*t = *New()
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return fmt.Errorf("decode table: expected array, got %v", tok)
	}

	out := New()
	for dec.More() {
		if tok, err = dec.Token(); err != nil {
			return fmt.Errorf("decode table: %w", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return fmt.Errorf("decode table: expected object, got %v", tok)
		}

		row := make([]any, len(out.columns))
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("decode table: %w", err)
			}
			key := keyTok.(string)

			var v any
			if err := dec.Decode(&v); err != nil {
				return fmt.Errorf("decode table: %q: %w", key, err)
			}

			j, ok := out.index[key]
			if !ok {
				out.addColumn(key)
				j = len(out.columns) - 1
				row = append(row, nil)
			}
			row[j] = v
		}
		if _, err := dec.Token(); err != nil { // '}'
			return fmt.Errorf("decode table: %w", err)
		}
		out.rows = append(out.rows, row)
	}
	if _, err := dec.Token(); err != nil { // ']'
		return fmt.Errorf("decode table: %w", err)
	}

	*t = *out
	return nil
}

// Decode parses a JSON records array.
func Decode(data []byte) (*Table, error) {
	t := New()
	if err := t.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return t, nil
}

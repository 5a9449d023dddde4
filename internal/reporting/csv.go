package reporting

import (
	"fmt"
	"strings"
)

// RenderScalerCSV renders fitted scaler parameters as CSV string.
func RenderScalerCSV(params []ScalerRow) string {
	var sb strings.Builder

	sb.WriteString("column,center,scale\n")
	for _, p := range params {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f\n", quote(p.Column), p.Center, p.Scale))
	}

	return sb.String()
}

// RenderStagesCSV renders per-stage frame shapes as CSV string.
func RenderStagesCSV(stages []StageRow) string {
	var sb strings.Builder

	sb.WriteString("stage,rows,columns,nulls,first,last\n")
	for _, s := range stages {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%s,%s\n",
			quote(s.Stage), s.Rows, s.Columns, s.Nulls, s.First, s.Last))
	}

	return sb.String()
}

// quote wraps fields holding a comma or quote, as column names like
// "price ($/MMBTU)" may.
func quote(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

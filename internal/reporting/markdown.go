package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Pipeline Run Report\n\n")
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Run date: %s | Generated: %s\n\n",
		r.RunDate.Format(time.DateOnly), r.GeneratedAt.Format(time.RFC3339)))

	// Inputs
	sb.WriteString("## Inputs\n\n")
	if len(r.Inputs) > 0 {
		sb.WriteString("| Dataset | Object | Rows |\n")
		sb.WriteString("|---------|--------|------|\n")
		for _, in := range r.Inputs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", in.Dataset, in.ObjectKey, in.Rows))
		}
	} else {
		sb.WriteString("No inputs read.\n")
	}
	sb.WriteString("\n")

	// Stages
	sb.WriteString("## Stages\n\n")
	if len(r.Stages) > 0 {
		sb.WriteString("| Stage | Rows | Columns | Nulls | First | Last |\n")
		sb.WriteString("|-------|------|---------|-------|-------|------|\n")
		for _, s := range r.Stages {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %s | %s |\n",
				s.Stage, s.Rows, s.Columns, s.Nulls, dash(s.First), dash(s.Last)))
		}
	} else {
		sb.WriteString("No stages recorded.\n")
	}
	sb.WriteString("\n")

	// Fills
	sb.WriteString("## Imputation and Fills\n\n")
	if len(r.Fills) > 0 {
		sb.WriteString("| Step | Cells |\n")
		sb.WriteString("|------|-------|\n")
		for _, f := range r.Fills {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", f.Step, f.Cells))
		}
	} else {
		sb.WriteString("No cells filled.\n")
	}
	sb.WriteString("\n")

	if len(r.RemainingNulls) > 0 {
		sb.WriteString("### Remaining Nulls\n\n")
		for _, n := range r.RemainingNulls {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", n.Column, n.Nulls))
		}
		sb.WriteString("\n")
	}

	// Split
	s := r.Split
	sb.WriteString("## Train/Test Split\n\n")
	sb.WriteString("| Metric | Train | Test |\n")
	sb.WriteString("|--------|-------|------|\n")
	sb.WriteString(fmt.Sprintf("| Rows | %d | %d |\n", s.TrainRows, s.TestRows))
	sb.WriteString(fmt.Sprintf("| Start | %s | %s |\n", dash(s.TrainStart), dash(s.TestStart)))
	sb.WriteString(fmt.Sprintf("| End | %s | %s |\n", dash(s.TrainEnd), dash(s.TestEnd)))
	sb.WriteString(fmt.Sprintf("| Windows | %d | %d |\n", s.TrainWindows, s.TestWindows))
	sb.WriteString(fmt.Sprintf("| Batches | %d | %d |\n", s.TrainBatches, s.TestBatches))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Holdout %.2f | window length %d | batch size %d | %d features | target `%s`\n\n",
		s.Holdout, s.WindowLength, s.BatchSize, s.Features, s.Target))

	// Scaler
	sb.WriteString("## Robust Scaler\n\n")
	if len(r.ScalerParams) > 0 {
		sb.WriteString("| Column | Center | Scale |\n")
		sb.WriteString("|--------|--------|-------|\n")
		for _, p := range r.ScalerParams {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f |\n", p.Column, p.Center, p.Scale))
		}
	} else {
		sb.WriteString("Scaler not fitted.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

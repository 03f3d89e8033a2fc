package output

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/crimson-sun/worktally/internal/model"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat maps a string to a Format. Unknown strings default to table.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, string(FormatJSON)) {
		return FormatJSON
	}
	return FormatTable
}

// RenderTable lays a report out as an aligned text table: one row per
// bucket, one column per category (display names), hours to two decimals,
// and a trailing total column. Shares, when present, follow in parentheses.
func RenderTable(rep model.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s..%s\n", title(rep.Granularity), rep.RangeStart, rep.RangeEnd)
	if rep.Empty() {
		b.WriteString("(no records in range)\n")
		return b.String()
	}

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, string(rep.Granularity), "\t")
	for _, c := range rep.Columns {
		fmt.Fprint(tw, c.DisplayName(), "\t")
	}
	fmt.Fprint(tw, "Total\t\n")

	for _, row := range rep.Rows {
		fmt.Fprint(tw, row.Bucket, "\t")
		for j, v := range row.Cells {
			if row.Shares != nil {
				fmt.Fprintf(tw, "%.2f (%.0f%%)\t", v, row.Shares[j])
			} else {
				fmt.Fprintf(tw, "%.2f\t", v)
			}
		}
		fmt.Fprintf(tw, "%.2f\t\n", row.Total)
	}
	tw.Flush()
	return b.String()
}

func title(g model.Granularity) string {
	switch g {
	case model.ByMonth:
		return "Monthly hours by category"
	case model.ByDate:
		return "Daily hours by category"
	default:
		return "Hours by category"
	}
}

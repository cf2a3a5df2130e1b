package dashboard

import (
	"github.com/shopspring/decimal"

	"frugal/internal/core"
)

const (
	InsightsTitle = "Spending by Category"
	NoInsights    = "No data available"
)

// Palette is cycled over pie slices in order.
var Palette = []string{"#0088FE", "#00C49F", "#FFBB28", "#FF8042", "#8884d8", "#82ca9d", "#ffc658"}

type Slice struct {
	Category string
	Total    decimal.Decimal
	Amount   string // formatted total
	Share    decimal.Decimal
	Color    string
}

type InsightsChart struct {
	Title  string
	Slices []Slice
	Empty  bool
}

// BuildInsights turns category totals into pie slices with their share of
// the overall total.
func BuildInsights(totals []core.CategoryTotal) InsightsChart {
	chart := InsightsChart{Title: InsightsTitle, Empty: len(totals) == 0}
	sum := core.TotalOf(totals)
	for i, ct := range totals {
		chart.Slices = append(chart.Slices, Slice{
			Category: ct.Category,
			Total:    ct.Total,
			Amount:   core.FormatUSD(ct.Total),
			Share:    core.Percent(ct.Total, sum),
			Color:    Palette[i%len(Palette)],
		})
	}
	return chart
}

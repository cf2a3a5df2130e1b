package dashboard

import (
	"fmt"

	"frugal/internal/core"
)

type Tile struct {
	Title    string
	Value    string
	Caption  string
	Negative bool
}

type StatsPanel struct {
	Tiles []Tile
}

// BuildStatsPanel lays out the four summary tiles.
func BuildStatsPanel(s core.DashboardStats) StatsPanel {
	remainingCaption := "No budget set"
	if s.Budget.IsPositive() {
		remainingCaption = fmt.Sprintf("%s%% of budget left", core.Percent(s.Remaining, s.Budget).StringFixed(1))
	}

	return StatsPanel{Tiles: []Tile{
		{Title: "Total Spent", Value: core.FormatUSD(s.TotalSpent), Caption: "Total expenses"},
		{Title: "Budget", Value: core.FormatUSD(s.Budget), Caption: "Total budget"},
		{Title: "Remaining", Value: core.FormatUSD(s.Remaining), Caption: remainingCaption, Negative: s.IsOverBudget()},
		{Title: "Active Debts", Value: core.FormatUSD(s.ActiveDebts), Caption: "To be collected"},
	}}
}

// Tile returns the tile titled title, if present.
func (p StatsPanel) Tile(title string) (Tile, bool) {
	for _, t := range p.Tiles {
		if t.Title == title {
			return t, true
		}
	}
	return Tile{}, false
}

package core

import (
	"fmt"
	"sort"
	"time"
)

// MonthTotals is one row of the trend table: income, expense and net for a
// calendar month.
type MonthTotals struct {
	Year    int
	Month   int // 1-12
	Income  Money
	Expense Money
}

// Net is income minus expense.
func (m MonthTotals) Net() Money {
	return m.Income.Sub(m.Expense)
}

// Label is the short month name with year, e.g. "Jan 2024".
func (m MonthTotals) Label() string {
	return fmt.Sprintf("%s %d", time.Month(m.Month).String()[:3], m.Year)
}

// GroupTrends folds trend points, which carry one type per point, into one
// row per month ordered oldest first.
func GroupTrends(points []TrendPoint) []MonthTotals {
	byMonth := make(map[[2]int]*MonthTotals)
	for _, p := range points {
		key := [2]int{p.ID.Year, p.ID.Month}
		row, ok := byMonth[key]
		if !ok {
			row = &MonthTotals{Year: p.ID.Year, Month: p.ID.Month}
			byMonth[key] = row
		}
		switch p.ID.Type {
		case Income:
			row.Income = row.Income.Add(p.Total)
		case Expense:
			row.Expense = row.Expense.Add(p.Total)
		}
	}

	rows := make([]MonthTotals, 0, len(byMonth))
	for _, row := range byMonth {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Month < rows[j].Month
	})
	return rows
}

// ChartPoint is the shape served to the trend chart script.
type ChartPoint struct {
	Label   string  `json:"label"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

// ChartSeries converts grouped months into chart points.
func ChartSeries(rows []MonthTotals) []ChartPoint {
	out := make([]ChartPoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, ChartPoint{
			Label:   r.Label(),
			Income:  r.Income.Float64(),
			Expense: r.Expense.Float64(),
			Net:     r.Net().Float64(),
		})
	}
	return out
}

// Share returns part/total in percent rounded to one decimal, 0 when total is 0.
func Share(part, total Money) float64 {
	if total.IsZero() {
		return 0
	}
	pct, _ := part.Div(total.Decimal).Shift(2).Round(1).Float64()
	return pct
}

// Package aggregate reduces grouped incident counts into the response
// shapes served by the aggregate endpoints.
package aggregate

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// GroupCount is one row of a grouped count. Keys are in dimension order;
// a nil key is a NULL group.
type GroupCount struct {
	Keys  []*string
	Count int64
}

// Key returns key i, or "" for a NULL or missing key.
func (g GroupCount) Key(i int) string {
	if i >= len(g.Keys) || g.Keys[i] == nil {
		return ""
	}
	return *g.Keys[i]
}

// KeyPtr returns key i, or nil.
func (g GroupCount) KeyPtr(i int) *string {
	if i >= len(g.Keys) {
		return nil
	}
	return g.Keys[i]
}

// PeriodCount is a single time-series point.
type PeriodCount struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}

// TimeSeries sorts period buckets ascending. Periods with no incidents are
// absent; rows without a period are dropped.
func TimeSeries(rows []GroupCount) []PeriodCount {
	out := make([]PeriodCount, 0, len(rows))
	for _, r := range rows {
		if r.KeyPtr(0) == nil {
			continue
		}
		out = append(out, PeriodCount{Period: r.Key(0), Count: r.Count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// CategoryCount is one entry of a top-N list.
type CategoryCount struct {
	Value string `json:"category_value"`
	Count int64  `json:"incident_count"`
}

// TopN returns the n most frequent values, count descending. Equal counts
// are ordered by value so the output is stable across stores.
func TopN(rows []GroupCount, n int) []CategoryCount {
	out := make([]CategoryCount, 0, len(rows))
	for _, r := range rows {
		if r.KeyPtr(0) == nil {
			continue
		}
		out = append(out, CategoryCount{Value: r.Key(0), Count: r.Count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Cell is one entry of a two-dimensional cross tab.
type Cell struct {
	X     string `json:"dimension1_value"`
	Y     string `json:"dimension2_value"`
	Count int64  `json:"incident_count"`
}

// Heatmap returns every (x, y) pair, count descending then x, y ascending.
// Pairs with a NULL side are dropped.
func Heatmap(rows []GroupCount) []Cell {
	out := make([]Cell, 0, len(rows))
	for _, r := range rows {
		if r.KeyPtr(0) == nil || r.KeyPtr(1) == nil {
			continue
		}
		out = append(out, Cell{X: r.Key(0), Y: r.Key(1), Count: r.Count})
	}
	sortCells(out)
	return out
}

func sortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
}

// RiskCell is a phase x final category count.
type RiskCell struct {
	Phase         string `json:"phase"`
	FinalCategory string `json:"final_category"`
	Count         int64  `json:"incident_count"`
}

// RiskHeatmap is Heatmap over (phase, final_category), truncated to limit
// when limit > 0.
func RiskHeatmap(rows []GroupCount, limit int) []RiskCell {
	cells := Heatmap(rows)
	if limit > 0 && len(cells) > limit {
		cells = cells[:limit]
	}
	out := make([]RiskCell, len(cells))
	for i, c := range cells {
		out[i] = RiskCell{Phase: c.X, FinalCategory: c.Y, Count: c.Count}
	}
	return out
}

// HierarchyNode is one (operator, aircraft type, phase) combination.
type HierarchyNode struct {
	Operator     *string `json:"operator"`
	AircraftType *string `json:"aircraft_type"`
	Phase        *string `json:"phase"`
	Count        int64   `json:"incident_count"`
}

// Hierarchy keeps NULL keys; pci incidents never have a phase and would
// otherwise disappear.
func Hierarchy(rows []GroupCount) []HierarchyNode {
	out := make([]HierarchyNode, len(rows))
	for i, r := range rows {
		out[i] = HierarchyNode{
			Operator:     r.KeyPtr(0),
			AircraftType: r.KeyPtr(1),
			Phase:        r.KeyPtr(2),
			Count:        r.Count,
		}
	}
	return out
}

// SeasonalCell is one month of the dense seasonal matrix.
type SeasonalCell struct {
	Month string `json:"x"`
	Year  string `json:"y"`
	Count int64  `json:"v"`
}

// Seasonal builds the dense year x month matrix from YYYY-MM buckets. Nil
// bounds default to the earliest and latest year present. With no rows
// and no usable bounds the result is empty.
func Seasonal(rows []GroupCount, startYear, endYear *int) []SeasonalCell {
	counts := make(map[[2]int]int64)
	minYear, maxYear := 0, 0
	seen := false
	for _, r := range rows {
		year, month, ok := splitMonth(r.Key(0))
		if !ok {
			continue
		}
		counts[[2]int{year, month}] += r.Count
		if !seen || year < minYear {
			minYear = year
		}
		if !seen || year > maxYear {
			maxYear = year
		}
		seen = true
	}

	if !seen {
		return []SeasonalCell{}
	}
	if startYear != nil {
		minYear = *startYear
	}
	if endYear != nil {
		maxYear = *endYear
	}
	if maxYear < minYear {
		return []SeasonalCell{}
	}

	out := make([]SeasonalCell, 0, 12*(maxYear-minYear+1))
	for year := minYear; year <= maxYear; year++ {
		y := strconv.Itoa(year)
		for m := 1; m <= 12; m++ {
			out = append(out, SeasonalCell{
				Month: time.Month(m).String()[:3],
				Year:  y,
				Count: counts[[2]int{year, m}],
			})
		}
	}
	return out
}

func splitMonth(key string) (int, int, bool) {
	ys, ms, ok := strings.Cut(key, "-")
	if !ok {
		return 0, 0, false
	}
	year, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, false
	}
	month, err := strconv.Atoi(ms)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

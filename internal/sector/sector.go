// Package sector computes portfolio exposure per sector.
package sector

import (
	"sort"

	"equity-trader/internal/models"
)

// Allocation maps sector to its exposure.
type Allocation map[string]models.SectorAllocation

// Compute aggregates invested positions by sector. Percentages are of
// totalValue; positions without a sector are skipped.
func Compute(positions []models.Position, totalValue float64) Allocation {
	out := make(Allocation)
	for _, p := range positions {
		if !p.Invested() || p.Sector == "" {
			continue
		}
		a := out[p.Sector]
		a.Count++
		a.Value += p.Value
		out[p.Sector] = a
	}
	if totalValue > 0 {
		for s, a := range out {
			a.Percent = a.Value / totalValue
			out[s] = a
		}
	}
	return out
}

// Percent returns the exposure fraction of sector, zero when unknown.
func (a Allocation) Percent(sector string) float64 {
	return a[sector].Percent
}

// Largest returns the sector with the highest value.
func (a Allocation) Largest() (string, models.SectorAllocation, bool) {
	var (
		name string
		best models.SectorAllocation
		ok   bool
	)
	for _, s := range a.Sectors() {
		if v := a[s]; !ok || v.Value > best.Value {
			name, best, ok = s, v, true
		}
	}
	return name, best, ok
}

// Sectors returns sector names in sorted order.
func (a Allocation) Sectors() []string {
	names := make([]string, 0, len(a))
	for s := range a {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

// HeldCount returns the number of invested positions.
func HeldCount(positions []models.Position) int {
	n := 0
	for _, p := range positions {
		if p.Invested() {
			n++
		}
	}
	return n
}

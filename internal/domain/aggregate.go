package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DateRange is an inclusive calendar-day window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate rejects windows whose end precedes their start.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("date range end %s before start %s",
			r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}
	return nil
}

// Params are the five inputs of one aggregation. The growth and mobility
// windows are independent and need not overlap: mobility is typically
// averaged over an earlier window to test a lagged effect.
type Params struct {
	State          string    `json:"state"`
	MinCases       int       `json:"min_cases"`
	GrowthWindow   DateRange `json:"growth_window"`
	MobilityWindow DateRange `json:"mobility_window"`
}

// Validate checks both windows and the threshold.
func (p Params) Validate() error {
	if err := p.GrowthWindow.Validate(); err != nil {
		return fmt.Errorf("growth window: %w", err)
	}
	if err := p.MobilityWindow.Validate(); err != nil {
		return fmt.Errorf("mobility window: %w", err)
	}
	if p.MinCases < 0 {
		return fmt.Errorf("min cases threshold %d is negative", p.MinCases)
	}
	return nil
}

// AggregatedRegion is one output row of the aggregation: a county that has
// case data in the growth window, mobility data in the mobility window, and
// a peak case count at or above the threshold.
//
// MeanDailyGrowthPct is NaN when the region has fewer than two case rows in
// the window, or when any day-over-day step divides by a zero count. NaN
// rows are kept here (the threshold check is independent of growth) and are
// dropped by the trend fit and the plot.
type AggregatedRegion struct {
	RegionID           string
	RegionName         string
	MeanDailyGrowthPct float64
	MeanMobilityIndex  float64
	MaxCaseCount       int
}

// RegionRow is the wire form of an AggregatedRegion. JSON cannot carry NaN,
// so an undefined growth rate serializes as null.
type RegionRow struct {
	RegionID           string   `json:"region_id"`
	RegionName         string   `json:"region_name"`
	MeanDailyGrowthPct *float64 `json:"mean_daily_growth_pct"`
	MeanMobilityIndex  float64  `json:"mean_mobility_index"`
	MaxCaseCount       int      `json:"max_case_count"`
}

// Wire converts an AggregatedRegion for serialization.
func (a AggregatedRegion) Wire() RegionRow {
	row := RegionRow{
		RegionID:          a.RegionID,
		RegionName:        a.RegionName,
		MeanMobilityIndex: a.MeanMobilityIndex,
		MaxCaseCount:      a.MaxCaseCount,
	}
	if !math.IsNaN(a.MeanDailyGrowthPct) {
		g := a.MeanDailyGrowthPct
		row.MeanDailyGrowthPct = &g
	}
	return row
}

// Aggregate joins the two datasets into per-region rows.
//
// The case slice starts one day before the growth window so the growth rate
// at the window's first day is measured against the prior day. Case rows are
// grouped by region; each group yields the window's peak cumulative count
// and the arithmetic mean of the day-over-day percentage changes
// (cᵢ/cᵢ₋₁ − 1) × 100. The mean of simple returns is deliberate — it
// reproduces the established output of this analysis and must not be
// replaced with a geometric rate.
//
// Mobility rows are restricted to county level and averaged per region over
// the (independent) mobility window. Regions below the case threshold or
// missing from either side of the join are dropped. A state absent from the
// data yields an empty result, not an error.
func Aggregate(cases *CaseTable, mobility *MobilityTable, p Params) ([]AggregatedRegion, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	caseAgg := aggregateCases(cases, p.State, p.GrowthWindow)
	mobilityAgg := aggregateMobility(mobility, p.State, p.MobilityWindow)

	var out []AggregatedRegion
	for id, ca := range caseAgg {
		if ca.maxCases < p.MinCases {
			continue
		}
		meanMobility, ok := mobilityAgg[id]
		if !ok {
			continue
		}
		out = append(out, AggregatedRegion{
			RegionID:           id,
			RegionName:         ca.name,
			MeanDailyGrowthPct: ca.meanGrowth,
			MeanMobilityIndex:  meanMobility,
			MaxCaseCount:       ca.maxCases,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegionID < out[j].RegionID })
	return out, nil
}

type caseAggregate struct {
	name       string
	maxCases   int
	meanGrowth float64
}

func aggregateCases(cases *CaseTable, state string, window DateRange) map[string]caseAggregate {
	// One extra day of history anchors the growth rate at window.Start.
	sliced := cases.Slice(Day(window.Start).AddDate(0, 0, -1), Day(window.End))

	groups := make(map[string][]CaseRecord)
	for i := range sliced {
		if sliced[i].State != state {
			continue
		}
		groups[sliced[i].RegionID] = append(groups[sliced[i].RegionID], sliced[i])
	}

	out := make(map[string]caseAggregate, len(groups))
	for id, recs := range groups {
		// The table is date-sorted, so appends preserve date order within
		// the group. Re-sorting keeps the aggregate independent of source
		// row order for same-day duplicates.
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })

		maxCases := 0
		for i := range recs {
			if recs[i].Cases > maxCases {
				maxCases = recs[i].Cases
			}
		}
		out[id] = caseAggregate{
			name:       recs[0].County,
			maxCases:   maxCases,
			meanGrowth: meanDailyGrowth(recs),
		}
	}
	return out
}

// meanDailyGrowth computes the arithmetic mean of per-step simple returns
// over a date-ordered cumulative series. Fewer than two points is undefined
// (NaN). A step whose previous-day count is zero is undefined; its NaN
// propagates through the mean, making the whole region's rate NaN.
func meanDailyGrowth(recs []CaseRecord) float64 {
	if len(recs) < 2 {
		return math.NaN()
	}
	var sum float64
	for i := 1; i < len(recs); i++ {
		prev := float64(recs[i-1].Cases)
		if prev == 0 {
			return math.NaN()
		}
		sum += (float64(recs[i].Cases)/prev - 1) * 100
	}
	return sum / float64(len(recs)-1)
}

func aggregateMobility(mobility *MobilityTable, state string, window DateRange) map[string]float64 {
	sliced := mobility.Slice(Day(window.Start), Day(window.End))

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i := range sliced {
		if sliced[i].AdminLevel != CountyAdminLevel || sliced[i].State != state {
			continue
		}
		sums[sliced[i].RegionID] += sliced[i].M50Index
		counts[sliced[i].RegionID]++
	}

	out := make(map[string]float64, len(sums))
	for id, sum := range sums {
		out[id] = sum / float64(counts[id])
	}
	return out
}

// Snapshot is the result of one recomputation: the parameters, the joined
// rows, and the fitted trend (nil when undefined). Snapshots are ephemeral,
// rebuilt in full on every parameter change.
type Snapshot struct {
	Params     Params      `json:"params"`
	Rows       []RegionRow `json:"rows"`
	Fit        *TrendFit   `json:"fit,omitempty"`
	ComputedAt time.Time   `json:"computed_at"`
}

// BuildSnapshot aggregates and fits in one step. A failed fit (too few
// finite points, zero mobility variance) leaves Fit nil; it is not an error.
func BuildSnapshot(cases *CaseTable, mobility *MobilityTable, p Params) (Snapshot, error) {
	rows, err := Aggregate(cases, mobility, p)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Params:     p,
		Rows:       make([]RegionRow, len(rows)),
		ComputedAt: clock.Now().UTC(),
	}
	for i := range rows {
		snap.Rows[i] = rows[i].Wire()
	}

	xs, ys, _ := ScatterPoints(rows)
	if slope, intercept, err := FitLine(xs, ys); err == nil {
		snap.Fit = &TrendFit{Slope: slope, Intercept: intercept}
	}
	return snap, nil
}

// ScatterPoints extracts (mobility, growth, label) triples for plotting and
// fitting, dropping rows whose growth rate is not finite.
func ScatterPoints(rows []AggregatedRegion) (xs, ys []float64, labels []string) {
	for i := range rows {
		y := rows[i].MeanDailyGrowthPct
		x := rows[i].MeanMobilityIndex
		if math.IsNaN(y) || math.IsInf(y, 0) || math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
		labels = append(labels, rows[i].RegionName)
	}
	return xs, ys, labels
}

// Package domain models the join of county-level mobility and case data.
//
// # Data Sources
//
// Case data follows the NYT county time-series layout: one row per county
// per day with a cumulative reported case count, keyed by a zero-padded
// FIPS code. Counts are cumulative and non-decreasing in well-formed input;
// the package does not validate monotonicity.
//
// Mobility data follows the Descartes Labs daily mobility layout. The m50
// index is a percentage deviation of median movement from a pre-crisis
// baseline, per region per day, typically centered near 0 (100 means twice
// the baseline movement, -100 means none). Rows carry an admin_level:
// country=0, state=1, county=2. Only county rows participate in the join.
//
// # Aggregation Conventions
//
// Growth window: the case slice extends one day before the window start so
// the rate at the first day is measured against the prior day.
//
// Growth rate: the arithmetic mean of per-step simple returns
// (cᵢ/cᵢ₋₁ − 1) × 100 over the date-ordered cumulative series. This is a
// mean of simple returns, not a compound rate, and is preserved exactly to
// keep outputs identical with the established analysis.
//
// Undefined rates: fewer than two in-window rows, or any step whose
// previous-day count is zero, make the region's rate NaN. NaN never hides a
// region from the case threshold (the peak count is computed
// independently), but the trend fit and the plot drop NaN rows, and the
// wire form carries the rate as null.
//
// Windows: the growth and mobility windows are independent; a mobility
// window that is disjoint from the growth window is valid and common (the
// analysis tests a lagged effect of distancing on later growth).
package domain

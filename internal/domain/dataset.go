package domain

import (
	"sort"
	"time"
)

// CountyAdminLevel is the admin_level value marking county-granularity rows
// in the mobility dataset. Rows at other levels (country=0, state=1) are
// out of scope for the county join.
const CountyAdminLevel = 2

// CaseRecord is one row of the case dataset: the cumulative reported case
// count for a county on a calendar day.
type CaseRecord struct {
	Date     time.Time
	RegionID string // zero-padded FIPS code, the join key
	County   string
	State    string
	Cases    int // cumulative, non-decreasing per region in well-formed input
}

// MobilityRecord is one row of the mobility dataset: the m50 mobility index
// for an administrative region on a calendar day.
type MobilityRecord struct {
	Date       time.Time
	RegionID   string
	AdminLevel int
	State      string // admin1 name
	M50Index   float64
}

// CaseTable is an immutable, date-ordered snapshot of the case dataset.
// It is loaded once at startup and shared by all recomputations without
// locking; nothing mutates it after construction.
type CaseTable struct {
	records []CaseRecord
}

// NewCaseTable copies and date-sorts the given records. The sort is stable
// so same-day rows keep their source order.
func NewCaseTable(records []CaseRecord) *CaseTable {
	recs := make([]CaseRecord, len(records))
	copy(recs, records)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
	return &CaseTable{records: recs}
}

// Len returns the number of rows.
func (t *CaseTable) Len() int { return len(t.records) }

// Slice returns the rows with from <= date <= to. The returned slice aliases
// the table's backing array; callers must not modify it.
func (t *CaseTable) Slice(from, to time.Time) []CaseRecord {
	lo := sort.Search(len(t.records), func(i int) bool { return !t.records[i].Date.Before(from) })
	hi := sort.Search(len(t.records), func(i int) bool { return t.records[i].Date.After(to) })
	return t.records[lo:hi]
}

// States returns the sorted set of state names present in the table.
func (t *CaseTable) States() []string {
	set := make(map[string]struct{})
	for i := range t.records {
		set[t.records[i].State] = struct{}{}
	}
	return sortedKeys(set)
}

// DateSpan returns the earliest and latest dates in the table. ok is false
// when the table is empty.
func (t *CaseTable) DateSpan() (minDate, maxDate time.Time, ok bool) {
	if len(t.records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.records[0].Date, t.records[len(t.records)-1].Date, true
}

// MobilityTable is an immutable, date-ordered snapshot of the mobility
// dataset. Same sharing contract as CaseTable.
type MobilityTable struct {
	records []MobilityRecord
}

// NewMobilityTable copies and date-sorts the given records.
func NewMobilityTable(records []MobilityRecord) *MobilityTable {
	recs := make([]MobilityRecord, len(records))
	copy(recs, records)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
	return &MobilityTable{records: recs}
}

// Len returns the number of rows.
func (t *MobilityTable) Len() int { return len(t.records) }

// Slice returns the rows with from <= date <= to, aliasing the table's
// backing array.
func (t *MobilityTable) Slice(from, to time.Time) []MobilityRecord {
	lo := sort.Search(len(t.records), func(i int) bool { return !t.records[i].Date.Before(from) })
	hi := sort.Search(len(t.records), func(i int) bool { return t.records[i].Date.After(to) })
	return t.records[lo:hi]
}

// States returns the sorted set of admin1 names present at county level.
func (t *MobilityTable) States() []string {
	set := make(map[string]struct{})
	for i := range t.records {
		if t.records[i].AdminLevel == CountyAdminLevel {
			set[t.records[i].State] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// DateSpan returns the earliest and latest dates in the table.
func (t *MobilityTable) DateSpan() (minDate, maxDate time.Time, ok bool) {
	if len(t.records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.records[0].Date, t.records[len(t.records)-1].Date, true
}

// CommonStates returns the sorted intersection of state names present in
// both datasets. This backs the state selector: only states that can
// produce a non-empty join are offered.
func CommonStates(cases *CaseTable, mobility *MobilityTable) []string {
	inCases := make(map[string]struct{})
	for _, s := range cases.States() {
		inCases[s] = struct{}{}
	}
	var common []string
	for _, s := range mobility.States() {
		if _, ok := inCases[s]; ok {
			common = append(common, s)
		}
	}
	sort.Strings(common)
	return common
}

// Day truncates t to UTC midnight. All dataset dates are calendar days.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

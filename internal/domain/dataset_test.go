package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseTable_Slice(t *testing.T) {
	recs := caseSeries("001", "Anderson", "Texas", day(2020, 4, 1), 1, 2, 3, 4, 5)
	table := NewCaseTable(recs)

	t.Run("inclusive bounds", func(t *testing.T) {
		got := table.Slice(day(2020, 4, 2), day(2020, 4, 4))
		require.Len(t, got, 3)
		assert.Equal(t, day(2020, 4, 2), got[0].Date)
		assert.Equal(t, day(2020, 4, 4), got[2].Date)
	})

	t.Run("range outside data", func(t *testing.T) {
		assert.Empty(t, table.Slice(day(2020, 5, 1), day(2020, 5, 10)))
	})

	t.Run("unsorted input is sorted on construction", func(t *testing.T) {
		reversed := []CaseRecord{recs[4], recs[2], recs[0], recs[3], recs[1]}
		got := NewCaseTable(reversed).Slice(day(2020, 4, 1), day(2020, 4, 5))
		require.Len(t, got, 5)
		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].Date.Before(got[i-1].Date))
		}
	})
}

func TestDateSpan(t *testing.T) {
	table := NewCaseTable(caseSeries("001", "Anderson", "Texas", day(2020, 4, 1), 1, 2, 3))
	minDate, maxDate, ok := table.DateSpan()
	require.True(t, ok)
	assert.Equal(t, day(2020, 4, 1), minDate)
	assert.Equal(t, day(2020, 4, 3), maxDate)

	_, _, ok = NewCaseTable(nil).DateSpan()
	assert.False(t, ok)
}

func TestCommonStates(t *testing.T) {
	var caseRecs []CaseRecord
	caseRecs = append(caseRecs, caseSeries("001", "Anderson", "Texas", day(2020, 4, 1), 1)...)
	caseRecs = append(caseRecs, caseSeries("101", "Washington", "Oklahoma", day(2020, 4, 1), 1)...)
	cases := NewCaseTable(caseRecs)

	mobilityRecs := mobilitySeries("001", "Texas", day(2020, 4, 1), -1)
	mobilityRecs = append(mobilityRecs, mobilitySeries("201", "Kansas", day(2020, 4, 1), -1)...)
	// A state present only at state level must not count as common.
	mobilityRecs = append(mobilityRecs, MobilityRecord{
		Date: day(2020, 4, 1), RegionID: "40", AdminLevel: 1, State: "Oklahoma", M50Index: -2,
	})
	mobility := NewMobilityTable(mobilityRecs)

	assert.Equal(t, []string{"Texas"}, CommonStates(cases, mobility))
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2020, 4, 2, 23, 30, 0, 0, loc) // 04:30 UTC on April 3
	assert.Equal(t, day(2020, 4, 3), Day(ts))
}

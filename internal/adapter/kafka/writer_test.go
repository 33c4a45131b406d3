package kafka

import (
	"testing"
	"time"

	"github.com/nikhaldi/mobility-growth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	growth := 22.5
	snap := domain.Snapshot{
		Params:     domain.Params{State: "Texas", MinCases: 20},
		ComputedAt: now,
	}
	row := domain.RegionRow{
		RegionID:           "48001",
		RegionName:         "Anderson",
		MeanDailyGrowthPct: &growth,
		MeanMobilityIndex:  -12,
		MaxCaseCount:       30,
	}

	msg, err := serializeToMessage(snap, row)
	require.NoError(t, err)

	assert.Equal(t, []byte("48001"), msg.Key)
	assert.Contains(t, string(msg.Value), `"region_name":"Anderson"`)
	assert.Contains(t, string(msg.Value), `"mean_daily_growth_pct":22.5`)
	assert.Contains(t, string(msg.Value), `"state":"Texas"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "state", msg.Headers[0].Key)
	assert.Equal(t, []byte("Texas"), msg.Headers[0].Value)
	assert.Equal(t, "computed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_NullGrowth(t *testing.T) {
	snap := domain.Snapshot{Params: domain.Params{State: "Texas"}}
	row := domain.RegionRow{RegionID: "48003", RegionName: "Andrews"}

	msg, err := serializeToMessage(snap, row)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"mean_daily_growth_pct":null`)
}

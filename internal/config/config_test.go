package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.CaseDataURL, "us-counties.csv")
	assert.Contains(t, cfg.MobilityDataURL, "DL-us-mobility-daterow.csv")
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, "New York", cfg.DefaultParams.State)
	assert.Equal(t, 20, cfg.DefaultParams.MinCases)
	assert.Equal(t, time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC), cfg.DefaultParams.GrowthWindow.Start)
	assert.Equal(t, time.Date(2020, 4, 14, 0, 0, 0, 0, time.UTC), cfg.DefaultParams.GrowthWindow.End)
	assert.Equal(t, time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC), cfg.DefaultParams.MobilityWindow.Start)
	assert.Equal(t, time.Date(2020, 3, 28, 0, 0, 0, 0, time.UTC), cfg.DefaultParams.MobilityWindow.End)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "mobility-growth-snapshots", cfg.KafkaSinkTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("CASE_DATA_URL", "http://localhost:9000/cases.csv")
	t.Setenv("MOBILITY_DATA_URL", "http://localhost:9000/mobility.csv")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DEFAULT_STATE", "Texas")
	t.Setenv("DEFAULT_MIN_CASES", "50")
	t.Setenv("DEFAULT_GROWTH_WINDOW", "2020-05-01..2020-05-15")
	t.Setenv("DEFAULT_MOBILITY_WINDOW", "2020-04-10..2020-04-24")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/cases.csv", cfg.CaseDataURL)
	assert.Equal(t, "http://localhost:9000/mobility.csv", cfg.MobilityDataURL)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "Texas", cfg.DefaultParams.State)
	assert.Equal(t, 50, cfg.DefaultParams.MinCases)
	assert.Equal(t, time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), cfg.DefaultParams.GrowthWindow.Start)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad fetch timeout", "FETCH_TIMEOUT", "not-a-duration"},
		{"negative shutdown timeout", "SHUTDOWN_TIMEOUT", "-5s"},
		{"bad min cases", "DEFAULT_MIN_CASES", "many"},
		{"negative min cases", "DEFAULT_MIN_CASES", "-3"},
		{"window missing separator", "DEFAULT_GROWTH_WINDOW", "2020-04-01"},
		{"window bad date", "DEFAULT_GROWTH_WINDOW", "2020-04-01..soon"},
		{"window end before start", "DEFAULT_GROWTH_WINDOW", "2020-04-14..2020-04-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_KafkaValidation(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

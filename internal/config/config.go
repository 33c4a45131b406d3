package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nikhaldi/mobility-growth/internal/domain"
)

// Default dataset locations: NYT county case time series and the Descartes
// Labs daily mobility index.
const (
	defaultCaseDataURL     = "https://raw.githubusercontent.com/nytimes/covid-19-data/master/us-counties.csv"
	defaultMobilityDataURL = "https://raw.githubusercontent.com/descarteslabs/DL-COVID-19/master/DL-us-mobility-daterow.csv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	CaseDataURL     string
	MobilityDataURL string
	FetchTimeout    time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Defaults applied when an aggregation request omits a parameter.
	DefaultParams domain.Params

	// Snapshot publishing configuration.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	minCases, err := parseInt("DEFAULT_MIN_CASES", 20)
	if err != nil {
		return nil, err
	}

	growthWindow, err := parseWindow("DEFAULT_GROWTH_WINDOW", "2020-04-01..2020-04-14")
	if err != nil {
		return nil, err
	}

	mobilityWindow, err := parseWindow("DEFAULT_MOBILITY_WINDOW", "2020-03-15..2020-03-28")
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		CaseDataURL:     envOrDefault("CASE_DATA_URL", defaultCaseDataURL),
		MobilityDataURL: envOrDefault("MOBILITY_DATA_URL", defaultMobilityDataURL),
		FetchTimeout:    fetchTimeout,
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		DefaultParams: domain.Params{
			State:          envOrDefault("DEFAULT_STATE", "New York"),
			MinCases:       minCases,
			GrowthWindow:   growthWindow,
			MobilityWindow: mobilityWindow,
		},
		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "mobility-growth-snapshots"),
	}

	if cfg.CaseDataURL == "" {
		return nil, errors.New("CASE_DATA_URL is required")
	}
	if cfg.MobilityDataURL == "" {
		return nil, errors.New("MOBILITY_DATA_URL is required")
	}
	if err := cfg.DefaultParams.Validate(); err != nil {
		return nil, fmt.Errorf("default parameters: %w", err)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// parseWindow parses an inclusive date range in "2006-01-02..2006-01-02" form.
func parseWindow(key, fallback string) (domain.DateRange, error) {
	s := envOrDefault(key, fallback)
	parts := strings.SplitN(s, "..", 2)
	if len(parts) != 2 {
		return domain.DateRange{}, fmt.Errorf("invalid %s: want start..end, got %q", key, s)
	}
	start, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid %s start: %w", key, err)
	}
	end, err := time.Parse("2006-01-02", parts[1])
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid %s end: %w", key, err)
	}
	return domain.DateRange{Start: start, End: end}, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Command render produces a single annotated scatter plot PNG without running
// the HTTP server. It fetches the source datasets (or reads local CSV copies),
// aggregates them for one set of parameters, and writes the rendered plot.
//
// Usage:
//
//	go run ./cmd/render -state "New York" -min-cases 20 \
//	  -growth-window 2020-04-01..2020-04-14 \
//	  -mobility-window 2020-03-15..2020-03-28 \
//	  -out plot.png
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nikhaldi/mobility-growth/internal/adapter/plot"
	"github.com/nikhaldi/mobility-growth/internal/adapter/source"
	"github.com/nikhaldi/mobility-growth/internal/config"
	"github.com/nikhaldi/mobility-growth/internal/domain"
	"github.com/nikhaldi/mobility-growth/internal/observability"
)

func main() {
	state := flag.String("state", "", "state to aggregate (defaults to DEFAULT_STATE)")
	minCases := flag.Int("min-cases", -1, "case count threshold (defaults to DEFAULT_MIN_CASES)")
	growthWindow := flag.String("growth-window", "", "growth window as YYYY-MM-DD..YYYY-MM-DD")
	mobilityWindow := flag.String("mobility-window", "", "mobility window as YYYY-MM-DD..YYYY-MM-DD")
	caseFile := flag.String("case-file", "", "local case CSV instead of fetching CASE_DATA_URL")
	mobilityFile := flag.String("mobility-file", "", "local mobility CSV instead of fetching MOBILITY_DATA_URL")
	out := flag.String("out", "plot.png", "output PNG path")
	flag.Parse()

	if err := run(*state, *minCases, *growthWindow, *mobilityWindow, *caseFile, *mobilityFile, *out); err != nil {
		fmt.Fprintln(os.Stderr, "render:", err)
		os.Exit(1)
	}
}

func run(state string, minCases int, growthWindow, mobilityWindow, caseFile, mobilityFile, out string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetricsForTesting()

	params := cfg.DefaultParams
	if state != "" {
		params.State = state
	}
	if minCases >= 0 {
		params.MinCases = minCases
	}
	if growthWindow != "" {
		if params.GrowthWindow, err = parseWindow(growthWindow); err != nil {
			return fmt.Errorf("growth window: %w", err)
		}
	}
	if mobilityWindow != "" {
		if params.MobilityWindow, err = parseWindow(mobilityWindow); err != nil {
			return fmt.Errorf("mobility window: %w", err)
		}
	}
	if err := params.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	defer cancel()

	cases, mobility, err := loadDatasets(ctx, cfg, logger, caseFile, mobilityFile)
	if err != nil {
		return err
	}

	snap, err := domain.BuildSnapshot(cases, mobility, params)
	if err != nil {
		return err
	}
	logger.Info("snapshot computed", "state", params.State, "regions", len(snap.Rows), "fit", snap.Fit != nil)

	png, err := plot.NewRenderer(logger, metrics).Render(snap)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("plot written", "path", out, "bytes", len(png))
	return nil
}

func loadDatasets(ctx context.Context, cfg *config.Config, logger *slog.Logger, caseFile, mobilityFile string) (*domain.CaseTable, *domain.MobilityTable, error) {
	if caseFile != "" && mobilityFile != "" {
		cases, err := parseLocalCases(caseFile)
		if err != nil {
			return nil, nil, err
		}
		mobility, err := parseLocalMobility(mobilityFile)
		if err != nil {
			return nil, nil, err
		}
		return cases, mobility, nil
	}
	if caseFile != "" || mobilityFile != "" {
		return nil, nil, fmt.Errorf("-case-file and -mobility-file must be given together")
	}

	client := source.NewClient(cfg.CaseDataURL, cfg.MobilityDataURL, cfg.FetchTimeout, logger)
	cases, err := client.FetchCases(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch cases: %w", err)
	}
	mobility, err := client.FetchMobility(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch mobility: %w", err)
	}
	return cases, mobility, nil
}

func parseLocalCases(path string) (*domain.CaseTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := source.ParseCases(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return domain.NewCaseTable(recs), nil
}

func parseLocalMobility(path string) (*domain.MobilityTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := source.ParseMobility(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return domain.NewMobilityTable(recs), nil
}

func parseWindow(s string) (domain.DateRange, error) {
	parts := strings.SplitN(s, "..", 2)
	if len(parts) != 2 {
		return domain.DateRange{}, fmt.Errorf("expected YYYY-MM-DD..YYYY-MM-DD, got %q", s)
	}
	start, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return domain.DateRange{}, err
	}
	end, err := time.Parse("2006-01-02", parts[1])
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.DateRange{Start: start, End: end}, nil
}

// Command genmock generates synthetic source CSV fixtures in the upstream
// formats (NYT county cases, Descartes Labs mobility) plus a matching
// aggregated snapshot JSON. It drives the actual domain package so the
// snapshot fixture always matches real aggregation behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -case-out data/mock/us-counties.csv \
//	  -mobility-out data/mock/DL-us-mobility-daterow.csv \
//	  -snapshot-out data/mock/snapshot.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nikhaldi/mobility-growth/internal/domain"
)

var baseDate = time.Date(2020, time.March, 10, 0, 0, 0, 0, time.UTC)

const mockDays = 45

type countyDef struct {
	fips   string
	county string
	state  string
	// initial cases and daily growth factor for the synthetic epidemic curve
	seedCases  float64
	growthRate float64
	// baseline m50_index and how fast it decays as cases grow
	mobilityStart float64
	mobilityFloor float64
}

var counties = []countyDef{
	{fips: "36061", county: "New York City", state: "New York", seedCases: 40, growthRate: 1.22, mobilityStart: 95, mobilityFloor: 8},
	{fips: "36059", county: "Nassau", state: "New York", seedCases: 12, growthRate: 1.19, mobilityStart: 90, mobilityFloor: 14},
	{fips: "36119", county: "Westchester", state: "New York", seedCases: 25, growthRate: 1.17, mobilityStart: 88, mobilityFloor: 16},
	{fips: "48201", county: "Harris", state: "Texas", seedCases: 8, growthRate: 1.15, mobilityStart: 97, mobilityFloor: 30},
	{fips: "48113", county: "Dallas", state: "Texas", seedCases: 6, growthRate: 1.14, mobilityStart: 96, mobilityFloor: 32},
	{fips: "06037", county: "Los Angeles", state: "California", seedCases: 15, growthRate: 1.16, mobilityStart: 93, mobilityFloor: 20},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	caseOut := flag.String("case-out", "", "output path for the case CSV fixture")
	mobilityOut := flag.String("mobility-out", "", "output path for the mobility CSV fixture")
	snapshotOut := flag.String("snapshot-out", "", "output path for the aggregated snapshot JSON fixture")
	flag.Parse()

	if *caseOut == "" || *mobilityOut == "" || *snapshotOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -case-out, -mobility-out, -snapshot-out")
	}

	// Fixed seed and clock for reproducible fixtures.
	rng := rand.New(rand.NewSource(42))
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2020, time.April, 25, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	cases, mobility := synthesize(rng)

	if err := writeCaseCSV(*caseOut, cases); err != nil {
		return fmt.Errorf("writing case fixture: %w", err)
	}
	log.Printf("wrote case fixture: %s (%d rows)", *caseOut, len(cases))

	if err := writeMobilityCSV(*mobilityOut, mobility); err != nil {
		return fmt.Errorf("writing mobility fixture: %w", err)
	}
	log.Printf("wrote mobility fixture: %s (%d rows)", *mobilityOut, len(mobility))

	snap, err := domain.BuildSnapshot(
		domain.NewCaseTable(cases),
		domain.NewMobilityTable(mobility),
		domain.Params{
			State:          "New York",
			MinCases:       20,
			GrowthWindow:   domain.DateRange{Start: baseDate.AddDate(0, 0, 22), End: baseDate.AddDate(0, 0, 35)},
			MobilityWindow: domain.DateRange{Start: baseDate.AddDate(0, 0, 5), End: baseDate.AddDate(0, 0, 18)},
		},
	)
	if err != nil {
		return fmt.Errorf("building snapshot fixture: %w", err)
	}
	if err := writeJSON(*snapshotOut, snap); err != nil {
		return fmt.Errorf("writing snapshot fixture: %w", err)
	}
	log.Printf("wrote snapshot fixture: %s (%d regions)", *snapshotOut, len(snap.Rows))
	return nil
}

// synthesize builds day-by-day records for every county: an exponential case
// curve with noise, and a mobility index sliding from its baseline toward its
// lockdown floor.
func synthesize(rng *rand.Rand) ([]domain.CaseRecord, []domain.MobilityRecord) {
	var cases []domain.CaseRecord
	var mobility []domain.MobilityRecord

	for _, c := range counties {
		cumulative := c.seedCases
		for day := 0; day < mockDays; day++ {
			date := baseDate.AddDate(0, 0, day)

			jitter := 1 + (rng.Float64()-0.5)*0.08
			cumulative *= c.growthRate * jitter
			cases = append(cases, domain.CaseRecord{
				Date:     date,
				RegionID: c.fips,
				County:   c.county,
				State:    c.state,
				Cases:    int(math.Round(cumulative)),
			})

			progress := float64(day) / float64(mockDays-1)
			m50 := c.mobilityStart - (c.mobilityStart-c.mobilityFloor)*progress
			m50 += (rng.Float64() - 0.5) * 4
			mobility = append(mobility, domain.MobilityRecord{
				Date:       date,
				RegionID:   c.fips,
				AdminLevel: domain.CountyAdminLevel,
				State:      c.state,
				M50Index:   m50,
			})
		}
	}
	return cases, mobility
}

func writeCaseCSV(path string, records []domain.CaseRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "county", "state", "fips", "cases", "deaths"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format("2006-01-02"),
			r.County,
			r.State,
			r.RegionID,
			strconv.Itoa(r.Cases),
			strconv.Itoa(r.Cases / 30),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeMobilityCSV(path string, records []domain.MobilityRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"date", "country_code", "admin_level", "admin1", "admin2", "fips", "samples", "m50", "m50_index"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format("2006-01-02"),
			"US",
			strconv.Itoa(r.AdminLevel),
			r.State,
			"",
			r.RegionID,
			"1500",
			fmt.Sprintf("%.3f", r.M50Index/10),
			fmt.Sprintf("%.2f", r.M50Index),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nikhaldi/mobility-growth/internal/domain"
)

// ParseCases reads a case CSV (NYT county layout: date,county,state,fips,
// cases[,deaths]) into records. Columns are resolved by header name, so
// extra columns and reordering are tolerated. Rows without a FIPS code
// (statewide "Unknown" county rows) cannot join and are skipped; rows with
// unparseable dates or counts are errors.
func ParseCases(r io.Reader) ([]domain.CaseRecord, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header, "date", "county", "state", "fips", "cases")
	if err != nil {
		return nil, err
	}

	var records []domain.CaseRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		fips := row[cols["fips"]]
		if fips == "" {
			continue
		}

		date, err := time.Parse("2006-01-02", row[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: date: %w", line, err)
		}
		cases, err := strconv.Atoi(row[cols["cases"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: cases: %w", line, err)
		}
		if cases < 0 {
			return nil, fmt.Errorf("line %d: negative case count %d", line, cases)
		}

		records = append(records, domain.CaseRecord{
			Date:     date,
			RegionID: fips,
			County:   row[cols["county"]],
			State:    row[cols["state"]],
			Cases:    cases,
		})
	}
	return records, nil
}

// ParseMobility reads a mobility CSV (Descartes Labs daterow layout with
// date, admin_level, admin1, fips, m50_index among its columns). Rows
// without a FIPS code are skipped; state-level rows are kept as-is and
// filtered at aggregation time.
func ParseMobility(r io.Reader) ([]domain.MobilityRecord, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header, "date", "admin_level", "admin1", "fips", "m50_index")
	if err != nil {
		return nil, err
	}

	var records []domain.MobilityRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		fips := row[cols["fips"]]
		if fips == "" {
			continue
		}

		date, err := time.Parse("2006-01-02", row[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: date: %w", line, err)
		}
		adminLevel, err := strconv.Atoi(row[cols["admin_level"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: admin_level: %w", line, err)
		}
		m50Index, err := strconv.ParseFloat(row[cols["m50_index"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: m50_index: %w", line, err)
		}

		records = append(records, domain.MobilityRecord{
			Date:       date,
			RegionID:   fips,
			AdminLevel: adminLevel,
			State:      row[cols["admin1"]],
			M50Index:   m50Index,
		})
	}
	return records, nil
}

// resolveColumns maps required column names to their header positions.
func resolveColumns(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	cols := make(map[string]int, len(required))
	for _, name := range required {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q in header %v", name, header)
		}
		cols[name] = i
	}
	return cols, nil
}

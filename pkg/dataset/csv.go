package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hemoflow/hemoflow/pkg/blood"
)

const dateFormat = "2006-01-02"

var historyHeader = []string{
	"date", "city", "blood_type", "population", "hospitals",
	"month", "day_of_week", "season", "demand", "supply",
	"shortage", "is_critical", "seasonal_multiplier", "weather_factor",
}

// WriteHistory writes the historical demand table in the canonical column
// order.
func WriteHistory(path string, records []blood.DemandRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(historyHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format(dateFormat),
			string(r.City),
			string(r.BloodType),
			strconv.Itoa(r.Population),
			strconv.Itoa(r.Hospitals),
			strconv.Itoa(int(r.Date.Month())),
			strconv.Itoa(blood.WeekdayIndex(r.Date.Weekday())),
			string(r.Season),
			strconv.Itoa(r.Demand),
			strconv.Itoa(r.Supply),
			strconv.Itoa(r.Shortage),
			strconv.FormatBool(r.IsCritical),
			strconv.FormatFloat(r.SeasonalMultiplier, 'f', -1, 64),
			strconv.FormatFloat(r.WeatherFactor, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadHistory loads the historical demand table. Shortage, criticality and
// season are recomputed from demand/supply/date rather than trusted from the
// file.
func ReadHistory(path string) ([]blood.DemandRecord, error) {
	rows, idx, err := readTable(path)
	if err != nil {
		return nil, err
	}
	required := []string{"date", "city", "blood_type", "population", "hospitals", "demand", "supply"}
	if err := requireColumns(idx, required); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	records := make([]blood.DemandRecord, 0, len(rows))
	for n, row := range rows {
		date, err := time.Parse(dateFormat, row[idx["date"]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad date %q", path, n+2, row[idx["date"]])
		}
		rec := blood.DemandRecord{
			Date:               date,
			City:               blood.City(row[idx["city"]]),
			BloodType:          blood.BloodType(row[idx["blood_type"]]),
			Population:         atoiOr(row[idx["population"]], 0),
			Hospitals:          atoiOr(row[idx["hospitals"]], 0),
			Demand:             atoiOr(row[idx["demand"]], 0),
			Supply:             atoiOr(row[idx["supply"]], 0),
			SeasonalMultiplier: floatAt(row, idx, "seasonal_multiplier", 1.0),
			WeatherFactor:      floatAt(row, idx, "weather_factor", 1.0),
		}
		rec.Derive()
		records = append(records, rec)
	}
	return records, nil
}

// ReadRealtime loads a table of new transactional rows. The weather and
// urgency columns are optional.
func ReadRealtime(path string) ([]blood.TransactionRecord, error) {
	rows, idx, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(idx, []string{"date", "city", "blood_type", "type", "units"}); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	records := make([]blood.TransactionRecord, 0, len(rows))
	for n, row := range rows {
		date, err := time.Parse(dateFormat, row[idx["date"]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad date %q", path, n+2, row[idx["date"]])
		}
		kind := blood.TransactionKind(strings.ToLower(row[idx["type"]]))
		if kind != blood.Donation && kind != blood.Request {
			return nil, fmt.Errorf("%s row %d: unknown type %q", path, n+2, row[idx["type"]])
		}
		records = append(records, blood.TransactionRecord{
			Date:      date,
			City:      blood.City(row[idx["city"]]),
			BloodType: blood.BloodType(row[idx["blood_type"]]),
			Kind:      kind,
			Units:     atoiOr(row[idx["units"]], 0),
			Weather:   stringAt(row, idx, "weather"),
			Urgency:   stringAt(row, idx, "urgency"),
		})
	}
	return records, nil
}

// WriteDonors writes the donor registry table.
func WriteDonors(path string, donors []blood.DonorRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "blood_group", "recency_months", "frequency", "monetary_cc"}); err != nil {
		return err
	}
	for _, d := range donors {
		row := []string{
			strconv.Itoa(d.ID),
			d.BloodGroup,
			strconv.FormatFloat(d.RecencyMonths, 'f', -1, 64),
			strconv.FormatFloat(d.Frequency, 'f', -1, 64),
			strconv.FormatFloat(d.MonetaryCC, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadDonors loads the donor registry table.
func ReadDonors(path string) ([]blood.DonorRecord, error) {
	rows, idx, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(idx, []string{"id", "blood_group", "recency_months", "frequency", "monetary_cc"}); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	donors := make([]blood.DonorRecord, 0, len(rows))
	for _, row := range rows {
		donors = append(donors, blood.DonorRecord{
			ID:            atoiOr(row[idx["id"]], 0),
			BloodGroup:    row[idx["blood_group"]],
			RecencyMonths: floatAt(row, idx, "recency_months", 0),
			Frequency:     floatAt(row, idx, "frequency", 0),
			MonetaryCC:    floatAt(row, idx, "monetary_cc", 0),
		})
	}
	return donors, nil
}

// readTable reads a headered CSV file and returns data rows plus a
// column-name index.
func readTable(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("read %s: empty file", path)
	}

	idx := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		idx[strings.TrimSpace(strings.ToLower(name))] = i
	}
	return all[1:], idx, nil
}

func requireColumns(idx map[string]int, names []string) error {
	for _, name := range names {
		if _, ok := idx[name]; !ok {
			return fmt.Errorf("missing column %q", name)
		}
	}
	return nil
}

func atoiOr(s string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return fallback
}

func floatAt(row []string, idx map[string]int, col string, fallback float64) float64 {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return fallback
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64); err == nil {
		return v
	}
	return fallback
}

func stringAt(row []string, idx map[string]int, col string) string {
	if i, ok := idx[col]; ok && i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

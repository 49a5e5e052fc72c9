package features

import (
	"math"
	"sort"
	"time"

	"github.com/hemoflow/hemoflow/pkg/blood"
)

// FeatureNames is the ordered feature schema shared by training and every
// prediction path. The regressor expects exactly this order.
var FeatureNames = []string{
	"population", "hospitals", "month", "day_of_week", "quarter",
	"month_sin", "month_cos", "day_sin", "day_cos",
	"seasonal_multiplier", "weather_factor",
	"city_encoded", "blood_type_encoded", "season_encoded",
	"demand_lag_1", "demand_lag_7", "demand_lag_30",
	"demand_ma_7", "demand_ma_30",
}

// Lag and rolling-window offsets, in days relative positions within a
// (city, blood_type) group.
var (
	lagOffsets     = []int{1, 7, 30}
	rollingWindows = []int{7, 30}
)

// maxLag is the horizon a row needs behind it to carry complete lag features.
const maxLag = 30

// Result is the output of a Transform call.
type Result struct {
	Matrix  [][]float64
	Target  []float64
	Vocabs  *Vocabularies
	Medians []float64 // per-column medians of the training matrix, for inference imputation
}

// Transform converts demand records into the feature matrix and target
// vector.
//
// With vocabs == nil (training mode) new vocabularies are fitted from the
// input, rows lacking the full lag horizon are dropped, and per-column
// medians are computed from the surviving rows. With vocabs supplied
// (inference mode) the fitted vocabularies are applied, an unseen
// city/blood_type/season fails with UnseenCategoryError, and incomplete lag
// features are left NaN for the caller to impute via ImputeRow.
//
// Input is sorted by (city, blood_type, date) internally; lag and rolling
// semantics depend on that order.
func Transform(records []blood.DemandRecord, vocabs *Vocabularies) (*Result, error) {
	sorted := make([]blood.DemandRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.City != b.City {
			return a.City < b.City
		}
		if a.BloodType != b.BloodType {
			return a.BloodType < b.BloodType
		}
		return a.Date.Before(b.Date)
	})

	training := vocabs == nil
	if training {
		cities := make([]string, len(sorted))
		types := make([]string, len(sorted))
		seasons := make([]string, len(sorted))
		for i, r := range sorted {
			cities[i] = string(r.City)
			types[i] = string(r.BloodType)
			seasons[i] = string(r.Season)
		}
		vocabs = &Vocabularies{
			City:      FitVocabulary("city", cities),
			BloodType: FitVocabulary("blood_type", types),
			Season:    FitVocabulary("season", seasons),
		}
	}

	var matrix [][]float64
	var target []float64

	groupStart := 0
	var groupDemand []float64

	flushRow := func(i int, pos int) error {
		r := sorted[i]
		cityIdx, err := vocabs.City.Encode(string(r.City))
		if err != nil {
			return err
		}
		typeIdx, err := vocabs.BloodType.Encode(string(r.BloodType))
		if err != nil {
			return err
		}
		seasonIdx, err := vocabs.Season.Encode(string(r.Season))
		if err != nil {
			return err
		}

		row := calendarFeatures(r.Date)
		row[0] = float64(r.Population)
		row[1] = float64(r.Hospitals)
		row[9] = r.SeasonalMultiplier
		row[10] = r.WeatherFactor
		row[11] = float64(cityIdx)
		row[12] = float64(typeIdx)
		row[13] = float64(seasonIdx)

		complete := true
		for k, off := range lagOffsets {
			if pos >= off {
				row[14+k] = groupDemand[pos-off]
			} else {
				row[14+k] = math.NaN()
				complete = false
			}
		}
		for k, w := range rollingWindows {
			start := pos - w + 1
			if start < 0 {
				start = 0
			}
			sum := 0.0
			for _, d := range groupDemand[start : pos+1] {
				sum += d
			}
			row[17+k] = sum / float64(pos+1-start)
		}

		if training && !complete {
			return nil
		}
		matrix = append(matrix, row)
		target = append(target, float64(r.Demand))
		return nil
	}

	flushGroup := func(end int) error {
		groupDemand = groupDemand[:0]
		for i := groupStart; i < end; i++ {
			groupDemand = append(groupDemand, float64(sorted[i].Demand))
		}
		for i := groupStart; i < end; i++ {
			if err := flushRow(i, i-groupStart); err != nil {
				return err
			}
		}
		return nil
	}

	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) ||
			sorted[i].City != sorted[groupStart].City ||
			sorted[i].BloodType != sorted[groupStart].BloodType {
			if err := flushGroup(i); err != nil {
				return nil, err
			}
			groupStart = i
		}
	}

	res := &Result{Matrix: matrix, Target: target, Vocabs: vocabs}
	if training {
		res.Medians = columnMedians(matrix)
	}
	return res, nil
}

// calendarFeatures fills the date-derived slots of a fresh feature row.
func calendarFeatures(date time.Time) []float64 {
	row := make([]float64, len(FeatureNames))
	month := float64(date.Month())
	dow := float64(blood.WeekdayIndex(date.Weekday()))
	row[2] = month
	row[3] = dow
	row[4] = float64((int(date.Month())-1)/3 + 1)
	row[5] = math.Sin(2 * math.Pi * month / 12)
	row[6] = math.Cos(2 * math.Pi * month / 12)
	row[7] = math.Sin(2 * math.Pi * dow / 7)
	row[8] = math.Cos(2 * math.Pi * dow / 7)
	return row
}

// PredictionInput is a single structured demand query.
type PredictionInput struct {
	Date       time.Time
	City       string // optional; empty means impute
	BloodType  string // optional; empty means impute
	Population int
	Hospitals  int
}

// PredictionRow builds the feature vector for one query. Lag and rolling
// features, and any absent optional categorical, are NaN and must be imputed
// with the artifact's training medians before prediction. An unknown city or
// blood type fails with UnseenCategoryError.
func PredictionRow(in PredictionInput, vocabs *Vocabularies) ([]float64, error) {
	row := calendarFeatures(in.Date)
	row[0] = float64(in.Population)
	row[1] = float64(in.Hospitals)
	row[9] = blood.SeasonalMultiplier(in.Date.Month())
	row[10] = 1.0

	row[11] = math.NaN()
	if in.City != "" {
		idx, err := vocabs.City.Encode(in.City)
		if err != nil {
			return nil, err
		}
		row[11] = float64(idx)
	}
	row[12] = math.NaN()
	if in.BloodType != "" {
		idx, err := vocabs.BloodType.Encode(in.BloodType)
		if err != nil {
			return nil, err
		}
		row[12] = float64(idx)
	}
	seasonIdx, err := vocabs.Season.Encode(string(blood.SeasonOf(in.Date.Month())))
	if err != nil {
		return nil, err
	}
	row[13] = float64(seasonIdx)

	for i := 14; i < len(row); i++ {
		row[i] = math.NaN()
	}
	return row, nil
}

// ImputeRow replaces NaN entries with the corresponding training medians.
func ImputeRow(row, medians []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if math.IsNaN(v) && j < len(medians) {
			out[j] = medians[j]
		} else {
			out[j] = v
		}
	}
	return out
}

func columnMedians(matrix [][]float64) []float64 {
	if len(matrix) == 0 {
		return nil
	}
	cols := len(matrix[0])
	medians := make([]float64, cols)
	column := make([]float64, len(matrix))
	for j := 0; j < cols; j++ {
		for i := range matrix {
			column[i] = matrix[i][j]
		}
		sort.Float64s(column)
		n := len(column)
		if n%2 == 1 {
			medians[j] = column[n/2]
		} else {
			medians[j] = (column[n/2-1] + column[n/2]) / 2
		}
	}
	return medians
}

// Package analytics builds and persists the aggregate summary document
// consumed by dashboards. The snapshot is owned by the fusion engine; the
// serving layer only ever reads it.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/hemoflow/hemoflow/pkg/artifact"
	"github.com/hemoflow/hemoflow/pkg/blood"
)

// Series is a labelled value list, one entry per label.
type Series struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// Prediction is the single forward-looking demand estimate.
type Prediction struct {
	Region          string `json:"region"`
	PredictedDemand int    `json:"predictedDemand"`
	Confidence      int    `json:"confidence"`
	Trend           string `json:"trend"`
}

// CriticalPeriod annotates a recurring high-risk stretch of the year.
type CriticalPeriod struct {
	Period string `json:"period"`
	Demand string `json:"demand"`
	Reason string `json:"reason"`
}

// RealTimeInsights summarizes fusion activity.
type RealTimeInsights struct {
	LastUpdated          time.Time `json:"lastUpdated"`
	TotalRealTimeRecords int       `json:"totalRealTimeRecords"`
	RecentDonations      int       `json:"recentDonations"`
	RecentRequests       int       `json:"recentRequests"`
	CriticalRequests     int       `json:"criticalRequests"`
}

// Snapshot is the full analytics document. It is only ever mutated through
// the fusion engine's merge, which works on a clone and swaps the result in
// atomically.
type Snapshot struct {
	RegionalDemand        Series           `json:"regionalDemand"`
	SeasonalTrends        Series           `json:"seasonalTrends"`
	BloodTypeDistribution Series           `json:"bloodTypeDistribution"`
	NextMonth             Prediction       `json:"nextMonthPrediction"`
	CriticalPeriods       []CriticalPeriod `json:"criticalPeriods"`
	RealTime              RealTimeInsights `json:"realTimeInsights"`
}

var monthLabels = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// DefaultCriticalPeriods are the static period annotations rendered by
// dashboards.
var DefaultCriticalPeriods = []CriticalPeriod{
	{"Summer (May-June)", "High", "Heat-related emergencies, accidents, dehydration cases"},
	{"Festival Season (Oct-Nov)", "Very High", "Increased accidents during celebrations, road mishaps"},
	{"Winter (Dec-Jan)", "Medium", "Stable period with predictable demand patterns"},
	{"Monsoon (Jul-Sep)", "High", "Waterborne diseases, flooding accidents"},
}

// Build reduces a historical demand table into a fresh snapshot.
func Build(records []blood.DemandRecord, now time.Time) *Snapshot {
	s := &Snapshot{
		CriticalPeriods: DefaultCriticalPeriods,
		RealTime:        RealTimeInsights{LastUpdated: now.UTC()},
	}

	// Regional totals, largest first.
	cityTotals := make(map[blood.City]float64)
	for _, r := range records {
		cityTotals[r.City] += float64(r.Demand)
	}
	cities := make([]blood.City, 0, len(cityTotals))
	for c := range cityTotals {
		cities = append(cities, c)
	}
	sort.Slice(cities, func(i, j int) bool {
		if cityTotals[cities[i]] != cityTotals[cities[j]] {
			return cityTotals[cities[i]] > cityTotals[cities[j]]
		}
		return cities[i] < cities[j]
	})
	for _, c := range cities {
		s.RegionalDemand.Labels = append(s.RegionalDemand.Labels, string(c))
		s.RegionalDemand.Data = append(s.RegionalDemand.Data, cityTotals[c])
	}

	// Mean demand per calendar month.
	var monthSum, monthCount [12]float64
	for _, r := range records {
		m := int(r.Date.Month()) - 1
		monthSum[m] += float64(r.Demand)
		monthCount[m]++
	}
	s.SeasonalTrends.Labels = monthLabels
	s.SeasonalTrends.Data = make([]float64, 12)
	for m := 0; m < 12; m++ {
		if monthCount[m] > 0 {
			s.SeasonalTrends.Data[m] = monthSum[m] / monthCount[m]
		}
	}

	// Blood-type share of total demand, one decimal place.
	typeTotals := make(map[blood.BloodType]float64)
	total := 0.0
	for _, r := range records {
		typeTotals[r.BloodType] += float64(r.Demand)
		total += float64(r.Demand)
	}
	for _, bt := range blood.BloodTypes {
		if _, ok := typeTotals[bt]; !ok {
			continue
		}
		pct := 0.0
		if total > 0 {
			pct = math.Round(typeTotals[bt]/total*1000) / 10
		}
		s.BloodTypeDistribution.Labels = append(s.BloodTypeDistribution.Labels, string(bt))
		s.BloodTypeDistribution.Data = append(s.BloodTypeDistribution.Data, pct)
	}

	// Forward snapshot: next-month projection for the heaviest region.
	if len(cities) > 0 {
		top := cities[0]
		var sum, count float64
		for _, r := range records {
			if r.City == top {
				sum += float64(r.Demand)
				count++
			}
		}
		s.NextMonth = Prediction{
			Region:          string(top),
			PredictedDemand: int(math.Round(sum / count * 30)),
			Confidence:      92,
			Trend:           "increasing",
		}
	}

	return s
}

// Clone deep-copies the snapshot so merges never touch the live document.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.RegionalDemand = s.RegionalDemand.clone()
	out.SeasonalTrends = s.SeasonalTrends.clone()
	out.BloodTypeDistribution = s.BloodTypeDistribution.clone()
	out.CriticalPeriods = append([]CriticalPeriod(nil), s.CriticalPeriods...)
	return &out
}

func (s Series) clone() Series {
	return Series{
		Labels: append([]string(nil), s.Labels...),
		Data:   append([]float64(nil), s.Data...),
	}
}

// Save atomically writes the snapshot document.
func Save(path string, s *Snapshot) error {
	return artifact.Save(path, s)
}

// Load reads a snapshot document.
func Load(path string) (*Snapshot, error) {
	var s Snapshot
	if err := artifact.LoadJSON(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

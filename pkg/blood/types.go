// Package blood defines the domain model shared by every component:
// cities, blood types, seasons, demand observations and donor records.
package blood

import (
	"time"
)

// BloodType is one of the eight ABO/Rh groups.
type BloodType string

const (
	OPos  BloodType = "O+"
	APos  BloodType = "A+"
	BPos  BloodType = "B+"
	ABPos BloodType = "AB+"
	ONeg  BloodType = "O-"
	ANeg  BloodType = "A-"
	BNeg  BloodType = "B-"
	ABNeg BloodType = "AB-"
)

// BloodTypes lists all groups in distribution order.
var BloodTypes = []BloodType{OPos, APos, BPos, ABPos, ONeg, ANeg, BNeg, ABNeg}

// Distribution is the population share of each blood type, aligned with
// BloodTypes. The fractions sum to 1.0.
var Distribution = []float64{0.35, 0.25, 0.20, 0.08, 0.07, 0.03, 0.015, 0.005}

// Season buckets months into the four seasons used by the feature engine.
type Season string

const (
	Spring Season = "Spring"
	Summer Season = "Summer"
	Autumn Season = "Autumn"
	Winter Season = "Winter"
)

// SeasonOf maps a calendar month to its season.
func SeasonOf(m time.Month) Season {
	switch m {
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	case time.September, time.October, time.November:
		return Autumn
	default:
		return Winter
	}
}

// SeasonalMultiplier is the table-driven demand scaler keyed by month bucket:
// summer peak, festival season, winter stability and monsoon.
func SeasonalMultiplier(m time.Month) float64 {
	switch m {
	case time.May, time.June:
		return 1.4
	case time.October, time.November:
		return 1.6
	case time.December, time.January, time.February:
		return 0.9
	case time.July, time.August, time.September:
		return 1.2
	default:
		return 1.0
	}
}

// WeekdayIndex converts Go's Sunday-first weekday to the Monday=0 convention
// used throughout the feature schema.
func WeekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// City identifies one of the cities in the closed reference set.
type City string

const (
	Delhi     City = "Delhi"
	Mumbai    City = "Mumbai"
	Bangalore City = "Bangalore"
	Chennai   City = "Chennai"
	Kolkata   City = "Kolkata"
	Hyderabad City = "Hyderabad"
	Pune      City = "Pune"
	Ahmedabad City = "Ahmedabad"
)

// CityRef holds the static per-city reference data.
type CityRef struct {
	Name       City
	Population int
	Hospitals  int
	BaseDemand float64
}

// Cities is the closed city reference table, in generation order.
var Cities = []CityRef{
	{Delhi, 32000000, 150, 1200},
	{Mumbai, 25000000, 180, 1500},
	{Bangalore, 13000000, 120, 800},
	{Chennai, 11000000, 100, 600},
	{Kolkata, 15000000, 110, 900},
	{Hyderabad, 10000000, 90, 700},
	{Pune, 7000000, 70, 500},
	{Ahmedabad, 8000000, 60, 450},
}

// Defaults applied to real-time rows naming a city outside the reference set.
// That path is best effort; the synthetic generator only emits known cities.
const (
	DefaultPopulation = 5000000
	DefaultHospitals  = 50
)

// LookupCity returns the reference entry for a city name.
func LookupCity(name City) (CityRef, bool) {
	for _, c := range Cities {
		if c.Name == name {
			return c, true
		}
	}
	return CityRef{}, false
}

// DemandRecord is one (date, city, blood_type) observation. Shortage and
// IsCritical are always derived from Demand/Supply, never set independently.
type DemandRecord struct {
	Date               time.Time
	City               City
	BloodType          BloodType
	Population         int
	Hospitals          int
	Demand             int
	Supply             int
	Shortage           int
	IsCritical         bool
	Season             Season
	SeasonalMultiplier float64
	WeatherFactor      float64
}

// Derive recomputes the fields that are pure functions of the others.
func (r *DemandRecord) Derive() {
	r.Shortage = r.Demand - r.Supply
	if r.Shortage < 0 {
		r.Shortage = 0
	}
	r.IsCritical = float64(r.Supply) < 0.7*float64(r.Demand)
	r.Season = SeasonOf(r.Date.Month())
}

// TransactionKind tags a real-time row as a donation or a request.
type TransactionKind string

const (
	Donation TransactionKind = "donation"
	Request  TransactionKind = "request"
)

// TransactionRecord is one newly observed real-time row before fusion.
// Weather and Urgency are free-text, best-effort tags.
type TransactionRecord struct {
	Date      time.Time
	City      City
	BloodType BloodType
	Kind      TransactionKind
	Units     int
	Weather   string
	Urgency   string
}

// DonorRecord is one donor in the registry. Read-only reference data; the
// ranking path never mutates it.
type DonorRecord struct {
	ID            int
	BloodGroup    string
	RecencyMonths float64
	Frequency     float64
	MonetaryCC    float64
}

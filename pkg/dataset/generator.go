// Package dataset synthesizes the historical demand/supply table and handles
// the tabular file formats consumed by the pipeline.
package dataset

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hemoflow/hemoflow/pkg/blood"
)

// GeneratorConfig controls the synthetic history generator.
type GeneratorConfig struct {
	Seed  uint64
	Start time.Time
	End   time.Time
}

const (
	weekendMultiplier = 1.1
	emergencyProb     = 0.05
	surgeUnits        = 100
	minDemand         = 5
)

// GenerateHistory produces one DemandRecord per (day, city, blood_type)
// triple over the configured date range. Output is deterministic for a fixed
// seed: all random draws come from a single seeded source consumed in a fixed
// iteration order (day, city, blood type).
func GenerateHistory(cfg GeneratorConfig) []blood.DemandRecord {
	src := rand.NewSource(cfg.Seed)
	rng := rand.New(src)

	weather := distuv.Normal{Mu: 1.0, Sigma: 0.1, Src: src}
	// Surge magnitudes have mean 0.1, matching an exponential with scale 0.1.
	surge := distuv.Exponential{Rate: 10, Src: src}
	supplyRatio := distuv.Uniform{Min: 0.8, Max: 1.2, Src: src}

	var records []blood.DemandRecord

	for day := cfg.Start; !day.After(cfg.End); day = day.AddDate(0, 0, 1) {
		seasonal := blood.SeasonalMultiplier(day.Month())
		weekday := 1.0
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekday = weekendMultiplier
		}

		for _, city := range blood.Cities {
			for i, bt := range blood.BloodTypes {
				base := city.BaseDemand * blood.Distribution[i]

				surgeTerm := 0.0
				if rng.Float64() < emergencyProb {
					surgeTerm = surge.Rand()
				}
				weatherFactor := weather.Rand()

				demand := int(math.Round(base*seasonal*weekday*weatherFactor + surgeTerm*surgeUnits))
				if demand < minDemand {
					demand = minDemand
				}
				supply := int(math.Round(float64(demand) * supplyRatio.Rand()))

				rec := blood.DemandRecord{
					Date:               day,
					City:               city.Name,
					BloodType:          bt,
					Population:         city.Population,
					Hospitals:          city.Hospitals,
					Demand:             demand,
					Supply:             supply,
					SeasonalMultiplier: seasonal,
					WeatherFactor:      weatherFactor,
				}
				rec.Derive()
				records = append(records, rec)
			}
		}
	}

	return records
}

// GenerateDonors synthesizes a donor registry for the ranking engine.
// Deterministic for a fixed seed.
func GenerateDonors(seed uint64, n int) []blood.DonorRecord {
	rng := rand.New(rand.NewSource(seed))
	donors := make([]blood.DonorRecord, 0, n)

	for i := 0; i < n; i++ {
		group := pickBloodType(rng.Float64())
		frequency := float64(1 + rng.Intn(50))
		// Per-session volume varies around the 250cc·donation baseline so the
		// monetary axis is not a pure multiple of frequency.
		volume := 200 + rng.Float64()*100
		donors = append(donors, blood.DonorRecord{
			ID:            i + 1,
			BloodGroup:    string(group),
			RecencyMonths: float64(rng.Intn(40)),
			Frequency:     frequency,
			MonetaryCC:    math.Round(frequency * volume),
		})
	}
	return donors
}

func pickBloodType(p float64) blood.BloodType {
	cum := 0.0
	for i, frac := range blood.Distribution {
		cum += frac
		if p < cum {
			return blood.BloodTypes[i]
		}
	}
	return blood.BloodTypes[len(blood.BloodTypes)-1]
}

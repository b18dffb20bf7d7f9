package core

import "math"

// ImpactRates converts donated dollars into program impact figures.
// The rates live in configuration so a season with different meal costs
// does not require a code change.
type ImpactRates struct {
	MealsPerDollar float64
	MealsPerDeer   float64
}

// DefaultImpactRates mirrors the program's published conversion:
// one dollar funds three meals, one deer yields 37.5 meals.
func DefaultImpactRates() ImpactRates {
	return ImpactRates{MealsPerDollar: 3, MealsPerDeer: 37.5}
}

type Impact struct {
	MealsProvided int64
	DeerProcessed int64
}

// Impact derives the impact figures from a lifetime total in cents.
// Fractional units are floored: a donor is never shown a partial meal.
func (r ImpactRates) Impact(totalCents int64) Impact {
	dollars := float64(totalCents) / 100.0
	meals := math.Floor(dollars * r.MealsPerDollar)
	if meals < 0 {
		meals = 0
	}
	var deer float64
	if r.MealsPerDeer > 0 {
		deer = math.Floor(meals / r.MealsPerDeer)
	}
	return Impact{
		MealsProvided: int64(meals),
		DeerProcessed: int64(deer),
	}
}

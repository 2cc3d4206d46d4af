// Package pricing estimates how good "now" is as a time to buy a ticket for a
// given departure date.
//
// The model anchors on an ideal purchase date 49 days before departure.
// Buying after that date is penalised steeply, buying before it mildly, and
// the score never drops below a floor.
package pricing

import (
	"math"
	"time"

	"flylow/models"
)

const (
	// IdealLeadDays is how many days before departure the ideal purchase date sits.
	IdealLeadDays = 49

	BaseScore  = 95.0
	FloorScore = 25.0

	// EarlyPenaltyPerDay applies for each day today is before the ideal date.
	EarlyPenaltyPerDay = 0.1
	// LatePenaltyPerDay applies for each day today is after the ideal date.
	LatePenaltyPerDay = 1.2

	day = 24 * time.Hour
)

// CalendarDate truncates t to midnight UTC of its calendar day in t's own location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date as observed in loc.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return CalendarDate(time.Now().In(loc))
}

// IdealPurchaseDate returns departure minus IdealLeadDays.
func IdealPurchaseDate(departure time.Time) time.Time {
	return CalendarDate(departure).AddDate(0, 0, -IdealLeadDays)
}

// DaysPastIdeal returns how many whole calendar days today sits after the
// ideal purchase date; negative while today is still before it.
func DaysPastIdeal(departure, today time.Time) int {
	diff := CalendarDate(today).Sub(IdealPurchaseDate(departure))
	return int(math.Ceil(float64(diff) / float64(day)))
}

// Score maps the distance from the ideal purchase date to a value in [25, 95].
func Score(diffDays int) float64 {
	score := BaseScore
	switch {
	case diffDays < 0:
		score -= EarlyPenaltyPerDay * float64(-diffDays)
	case diffDays > 0:
		score -= LatePenaltyPerDay * float64(diffDays)
	}
	return math.Max(score, FloorScore)
}

// IdealBuyDate tells the user when to buy: Today once the ideal date has
// passed, otherwise the ideal date itself.
func IdealBuyDate(departure, today time.Time) models.BuyDate {
	departureDay := CalendarDate(departure)
	ideal := IdealPurchaseDate(departure)

	switch {
	case ideal.Before(CalendarDate(today)):
		return models.BuyDate{Today: true}
	case ideal.After(departureDay):
		// unreachable while IdealLeadDays > 0
		return models.BuyDate{Date: departureDay}
	default:
		return models.BuyDate{Date: ideal}
	}
}

// Assess combines Score and IdealBuyDate. The score is rounded to two decimals.
func Assess(departure, today time.Time) models.PriceAssessment {
	return models.PriceAssessment{
		Score:        round2(Score(DaysPastIdeal(departure, today))),
		IdealBuyDate: IdealBuyDate(departure, today),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

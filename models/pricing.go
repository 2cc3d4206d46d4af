package models

import (
	"encoding/json"
	"time"
)

// TodayLabel is what the UI shows when the ideal purchase date has passed.
const TodayLabel = "Today"

// BuyDate is either the sentinel "Today" or a calendar date.
type BuyDate struct {
	Today bool
	Date  time.Time
}

// String renders the date the way the results page shows it.
func (b BuyDate) String() string {
	if b.Today {
		return TodayLabel
	}
	return b.Date.Format("Mon Jan 02 2006")
}

// MarshalJSON renders "Today" or YYYY-MM-DD.
func (b BuyDate) MarshalJSON() ([]byte, error) {
	if b.Today {
		return json.Marshal(TodayLabel)
	}
	return json.Marshal(b.Date.Format(DateLayout))
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (b *BuyDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == TodayLabel {
		*b = BuyDate{Today: true}
		return nil
	}
	d, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*b = BuyDate{Date: d}
	return nil
}

// PriceAssessment is the heuristic verdict on buying now.
type PriceAssessment struct {
	Score        float64 `json:"score"`
	IdealBuyDate BuyDate `json:"idealBuyDate"`
}

package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrOriginRequired        = errors.New("origin is required")
	ErrDestinationRequired   = errors.New("destination is required")
	ErrDepartureDateRequired = errors.New("departure date is required")
	ErrInvalidDate           = errors.New("invalid date")
)

// ParseDate parses a YYYY-MM-DD calendar date into midnight UTC.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, value)
	}
	return d, nil
}

// ParseCriteria builds SearchCriteria from raw form or JSON values.
func ParseCriteria(from, to, departure, ret string, nearby bool) (SearchCriteria, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return SearchCriteria{}, ErrOriginRequired
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return SearchCriteria{}, ErrDestinationRequired
	}
	if strings.TrimSpace(departure) == "" {
		return SearchCriteria{}, ErrDepartureDateRequired
	}
	departureDate, err := ParseDate(departure)
	if err != nil {
		return SearchCriteria{}, err
	}

	criteria := SearchCriteria{
		OriginName:          from,
		DestinationName:     to,
		DepartureDate:       departureDate,
		AllowNearbyAirports: nearby,
	}
	if strings.TrimSpace(ret) != "" {
		returnDate, err := ParseDate(ret)
		if err != nil {
			return SearchCriteria{}, err
		}
		criteria.ReturnDate = &returnDate
	}
	return criteria, nil
}

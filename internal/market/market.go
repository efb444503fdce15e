// Package market answers NYSE trading-day questions for capture times.
package market

import (
	"time"

	"github.com/scmhub/calendar"

	"github.com/dgnsrekt/optionschain/internal/chain"
)

// Exchange is the NYSE calendar evaluated in US Eastern time.
type Exchange struct {
	nyse     *calendar.Calendar
	location *time.Location
}

// NewNYSE loads the NYSE calendar. It falls back to UTC when the Eastern
// timezone database is unavailable.
func NewNYSE() *Exchange {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Exchange{nyse: calendar.XNYS(), location: loc}
}

// Location returns the exchange's timezone location
func (e *Exchange) Location() *time.Location {
	return e.location
}

// IsTradingDay reports whether t falls on an NYSE session day, judged by the
// calendar date in Eastern time.
func (e *Exchange) IsTradingDay(t time.Time) bool {
	return e.IsTradingDate(t.In(e.location).Format(chain.DateLayout))
}

// IsTradingDate checks a YYYY-MM-DD date (not weekend/holiday).
func (e *Exchange) IsTradingDate(date string) bool {
	// Parse as noon to ensure correct date matching
	t, err := time.ParseInLocation("2006-01-02 15:04:05", date+" 12:00:00", e.location)
	if err != nil {
		return false
	}
	return e.nyse.IsBusinessDay(t)
}

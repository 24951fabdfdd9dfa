package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatsWindowDuration is the length of the reporting period of admin
// windows.
const StatsWindowDuration = 24 * time.Hour

// UserStats is the lifetime accumulator of a buyer or seller.
type UserStats struct {
	Deals  int
	Amount decimal.Decimal
}

// StatsWindow accumulates the deals attributed to an admin within the
// current 24h window.
type StatsWindow struct {
	Deals       int
	Amount      decimal.Decimal
	WindowStart time.Time
}

// IsStale returns whether the window must be reset at the given time.
func (w StatsWindow) IsStale(now time.Time) bool {
	return now.Sub(w.WindowStart) >= StatsWindowDuration
}

func (w *StatsWindow) rollover(now time.Time) {
	if w.IsStale(now) {
		*w = StatsWindow{Amount: decimal.Zero, WindowStart: now}
	}
}

// ChatStats summarizes the trades of a single chat scope.
type ChatStats struct {
	Total     int
	Open      int
	Completed int
	Refunded  int
	Volume    decimal.Decimal
}

// AdminSummary is the all-time breakdown of the volume attributed to an
// admin, by trade status.
type AdminSummary struct {
	Trades    int
	Hold      decimal.Decimal
	Completed decimal.Decimal
	Refunded  decimal.Decimal
}

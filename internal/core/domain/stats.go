package domain

import (
	"strings"
	"time"
)

// StatsAggregator derives per-user and per-admin statistics from the trades
// of the ledger.
type StatsAggregator struct {
	users   map[string]*UserStats
	windows map[int64]*StatsWindow
	holds   map[int64]int
}

func NewStatsAggregator() *StatsAggregator {
	return &StatsAggregator{
		users:   make(map[string]*UserStats),
		windows: make(map[int64]*StatsWindow),
		holds:   make(map[int64]int),
	}
}

// TrackOpenTrade increments the hold count of the admin who opened the
// trade.
func (s *StatsAggregator) TrackOpenTrade(t *Trade) {
	s.holds[t.CreatedBy]++
}

// RecordTerminalTrade must be called exactly once when a trade reaches a
// terminal state. It credits buyer and seller with one deal each, releases
// the hold of the opening admin and credits the recording admin's window,
// after rolling it over if stale.
func (s *StatsAggregator) RecordTerminalTrade(t *Trade, now time.Time) {
	s.recordParticipants(t)
	s.releaseHold(t)

	w := s.window(t.RecordingAdmin(), now)
	w.Deals++
	w.Amount = w.Amount.Add(t.Amount)
}

// UserStats returns the lifetime stats of the given participant, zero
// valued if never seen.
func (s *StatsAggregator) UserStats(identifier string) UserStats {
	st, ok := s.users[userKey(identifier)]
	if !ok {
		return UserStats{}
	}
	return *st
}

// GlobalStats returns a snapshot of every admin window, each rolled over
// before being read.
func (s *StatsAggregator) GlobalStats(now time.Time) map[int64]StatsWindow {
	stats := make(map[int64]StatsWindow, len(s.windows))
	for admin, w := range s.windows {
		w.rollover(now)
		stats[admin] = *w
	}
	return stats
}

// HoldCount returns the number of open trades opened by the given admin.
func (s *StatsAggregator) HoldCount(admin int64) int {
	return s.holds[admin]
}

// restore rebuilds the lifetime counters for a trade loaded from storage.
// Windows are not restored, they restart with the process.
func (s *StatsAggregator) restore(t *Trade) {
	if t.IsOpen() {
		s.TrackOpenTrade(t)
		return
	}
	s.recordParticipants(t)
}

func (s *StatsAggregator) recordParticipants(t *Trade) {
	buyerKey, sellerKey := userKey(t.Buyer), userKey(t.Seller)
	for _, key := range []string{buyerKey, sellerKey} {
		st, ok := s.users[key]
		if !ok {
			st = &UserStats{}
			s.users[key] = st
		}
		st.Deals++
		st.Amount = st.Amount.Add(t.Amount)
	}
}

func (s *StatsAggregator) releaseHold(t *Trade) {
	if s.holds[t.CreatedBy] > 0 {
		s.holds[t.CreatedBy]--
	}
}

func (s *StatsAggregator) window(admin int64, now time.Time) *StatsWindow {
	w, ok := s.windows[admin]
	if !ok {
		w = &StatsWindow{WindowStart: now}
		s.windows[admin] = w
		return w
	}
	w.rollover(now)
	return w
}

func userKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

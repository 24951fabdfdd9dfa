package domain

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerSnapshot is the persisted layout of the ledger: every trade keyed by
// id, the admin set and the next id to assign.
type LedgerSnapshot struct {
	Trades   map[uint64]*Trade `json:"trades"`
	AdminIDs []int64           `json:"admin_ids"`
	NextID   uint64            `json:"next_id"`
}

// LedgerState is the whole mutable state of the escrow: trades, access
// control and statistics. It is not safe for concurrent use, the owning
// component is expected to serialize every access.
type LedgerState struct {
	Access *AccessControl
	Stats  *StatsAggregator

	trades map[uint64]*Trade
	nextID uint64
}

// NewLedgerState returns an empty ledger for the given owners.
func NewLedgerState(owners []int64) *LedgerState {
	return &LedgerState{
		Access: NewAccessControl(owners, nil),
		Stats:  NewStatsAggregator(),
		trades: make(map[uint64]*Trade),
		nextID: 1,
	}
}

// RestoreLedgerState rebuilds a ledger from a snapshot. User stats and hold
// counts are derived from the restored trades, totals from amount and fee.
func RestoreLedgerState(owners []int64, snapshot LedgerSnapshot) (*LedgerState, error) {
	l := NewLedgerState(owners)
	l.Access = NewAccessControl(owners, snapshot.AdminIDs)

	var maxID uint64
	for key, t := range snapshot.Trades {
		if t == nil {
			continue
		}
		if t.ID != key {
			return nil, fmt.Errorf("trade %d stored under key %d", t.ID, key)
		}
		if t.ID == 0 {
			return nil, fmt.Errorf("trade id must be positive")
		}
		if !IsValidAmount(t.Amount) || !IsValidAmount(t.Fee) {
			return nil, fmt.Errorf("trade %d: %w", t.ID, ErrInvalidAmount)
		}
		trade := t.Copy()
		trade.Total = trade.Amount.Add(trade.Fee)
		l.trades[t.ID] = trade
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	for _, t := range l.sortedTrades() {
		l.Stats.restore(t)
	}

	l.nextID = snapshot.NextID
	if l.nextID <= maxID {
		l.nextID = maxID + 1
	}
	if l.nextID == 0 {
		l.nextID = 1
	}
	return l, nil
}

// Snapshot returns a detached copy of the state to be persisted.
func (l *LedgerState) Snapshot() LedgerSnapshot {
	trades := make(map[uint64]*Trade, len(l.trades))
	for id, t := range l.trades {
		trades[id] = t.Copy()
	}
	return LedgerSnapshot{
		Trades:   trades,
		AdminIDs: l.Access.Admins(),
		NextID:   l.nextID,
	}
}

// NextID returns the id that will be assigned to the next trade.
func (l *LedgerState) NextID() uint64 {
	return l.nextID
}

// CreateTrade opens a new trade with the next sequential id.
func (l *LedgerState) CreateTrade(req TradeRequest, now time.Time) (*Trade, error) {
	t, err := NewTrade(l.nextID, req, now)
	if err != nil {
		return nil, err
	}
	l.trades[t.ID] = t
	l.nextID++
	l.Stats.TrackOpenTrade(t)
	return t.Copy(), nil
}

// FindTrade returns a copy of the trade with the given id, if any.
func (l *LedgerState) FindTrade(id uint64) (*Trade, bool) {
	t, ok := l.trades[id]
	if !ok {
		return nil, false
	}
	return t.Copy(), true
}

// CompleteTrade transitions an open trade to completed and records it into
// the stats. Nothing is mutated on error.
func (l *LedgerState) CompleteTrade(
	id uint64, admin int64, feeOverride *FeePolicy, now time.Time,
) (*Trade, error) {
	return l.finalizeTrade(id, func(t *Trade) error {
		return t.Complete(admin, feeOverride, now)
	}, now)
}

// RefundTrade transitions an open trade to refunded and records it into the
// stats. Nothing is mutated on error.
func (l *LedgerState) RefundTrade(
	id uint64, admin int64, feeOverride *FeePolicy, now time.Time,
) (*Trade, error) {
	return l.finalizeTrade(id, func(t *Trade) error {
		return t.Refund(admin, feeOverride, now)
	}, now)
}

// ListTradesByParticipant returns the trades where buyer or seller matches
// identifier or alias, ordered by creation time. Each range over the
// returned sequence re-reads the ledger.
func (l *LedgerState) ListTradesByParticipant(identifier, alias string) iter.Seq[*Trade] {
	return l.filterTrades(func(t *Trade) bool {
		return t.HasParticipant(identifier, alias)
	})
}

// ListTradesByChatScope returns the trades tagged with the given scope.
// Scope 0 means untracked and matches every trade.
func (l *LedgerState) ListTradesByChatScope(chatID int64) iter.Seq[*Trade] {
	return l.filterTrades(func(t *Trade) bool {
		return chatID == 0 || t.ChatID == chatID
	})
}

// AllTrades returns every trade ordered by creation time.
func (l *LedgerState) AllTrades() iter.Seq[*Trade] {
	return l.filterTrades(func(*Trade) bool { return true })
}

// ChatStats summarizes the trades of the given scope.
func (l *LedgerState) ChatStats(chatID int64) ChatStats {
	stats := ChatStats{Volume: decimal.Zero}
	for t := range l.ListTradesByChatScope(chatID) {
		stats.Total++
		stats.Volume = stats.Volume.Add(t.Amount)
		switch t.Status {
		case TradeStatusOpen:
			stats.Open++
		case TradeStatusCompleted:
			stats.Completed++
		case TradeStatusRefunded:
			stats.Refunded++
		}
	}
	return stats
}

// AdminSummary returns the all-time volume by status for every admin that
// recorded at least one trade.
func (l *LedgerState) AdminSummary() map[int64]AdminSummary {
	summary := make(map[int64]AdminSummary)
	for _, t := range l.trades {
		admin := t.RecordingAdmin()
		s, ok := summary[admin]
		if !ok {
			s = AdminSummary{
				Hold:      decimal.Zero,
				Completed: decimal.Zero,
				Refunded:  decimal.Zero,
			}
		}
		s.Trades++
		switch t.Status {
		case TradeStatusOpen:
			s.Hold = s.Hold.Add(t.Amount)
		case TradeStatusCompleted:
			s.Completed = s.Completed.Add(t.Amount)
		case TradeStatusRefunded:
			s.Refunded = s.Refunded.Add(t.Amount)
		}
		summary[admin] = s
	}
	return summary
}

func (l *LedgerState) finalizeTrade(
	id uint64, transition func(t *Trade) error, now time.Time,
) (*Trade, error) {
	current, ok := l.trades[id]
	if !ok {
		return nil, ErrTradeNotFound
	}

	updated := current.Copy()
	if err := transition(updated); err != nil {
		return nil, err
	}

	l.trades[id] = updated
	l.Stats.RecordTerminalTrade(updated, now)
	return updated.Copy(), nil
}

func (l *LedgerState) filterTrades(match func(t *Trade) bool) iter.Seq[*Trade] {
	return func(yield func(*Trade) bool) {
		for _, t := range l.sortedTrades() {
			if !match(t) {
				continue
			}
			if !yield(t.Copy()) {
				return
			}
		}
	}
}

func (l *LedgerState) sortedTrades() []*Trade {
	trades := make([]*Trade, 0, len(l.trades))
	for _, t := range l.trades {
		trades = append(trades, t)
	}
	slices.SortFunc(trades, func(a, b *Trade) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return trades
}

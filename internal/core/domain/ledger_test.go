package domain_test

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

var owners = []int64{1}

func TestLedgerSequentialIDs(t *testing.T) {
	ledger := domain.NewLedgerState(owners)

	for i := 1; i <= 10; i++ {
		trade, err := ledger.CreateTrade(newTradeRequest("@b", "@s", 10), now)
		require.NoError(t, err)
		require.Equal(t, uint64(i), trade.ID)
	}
	require.Equal(t, uint64(11), ledger.NextID())

	// A failing creation must not consume an id.
	_, err := ledger.CreateTrade(newTradeRequest("@b", "@s", -1), now)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	trade, err := ledger.CreateTrade(newTradeRequest("@b", "@s", 1), now)
	require.NoError(t, err)
	require.Equal(t, uint64(11), trade.ID)
}

func TestLedgerFindTrade(t *testing.T) {
	ledger := domain.NewLedgerState(owners)
	created, err := ledger.CreateTrade(newTradeRequest("@b", "@s", 10), now)
	require.NoError(t, err)

	found, ok := ledger.FindTrade(created.ID)
	require.True(t, ok)
	require.Equal(t, created, found)

	// Returned trades are detached from the ledger.
	found.Buyer = "@mallory"
	again, _ := ledger.FindTrade(created.ID)
	require.Equal(t, "@b", again.Buyer)

	notFound, ok := ledger.FindTrade(99)
	require.False(t, ok)
	require.Nil(t, notFound)
}

func TestLedgerFinalizeNotFound(t *testing.T) {
	ledger := domain.NewLedgerState(owners)
	_, err := ledger.CreateTrade(newTradeRequest("@b", "@s", 10), now)
	require.NoError(t, err)
	before := ledger.Snapshot()

	_, err = ledger.CompleteTrade(42, adminID, nil, now)
	require.ErrorIs(t, err, domain.ErrTradeNotFound)
	_, err = ledger.RefundTrade(42, adminID, nil, now)
	require.ErrorIs(t, err, domain.ErrTradeNotFound)

	require.Equal(t, before, ledger.Snapshot())
	require.Equal(t, 1, ledger.Stats.HoldCount(adminID))
	require.Empty(t, ledger.Stats.GlobalStats(now))
}

func TestLedgerFinalizeAlreadyTerminal(t *testing.T) {
	ledger := domain.NewLedgerState(owners)
	trade, err := ledger.CreateTrade(newTradeRequest("@b", "@s", 10), now)
	require.NoError(t, err)
	_, err = ledger.CompleteTrade(trade.ID, adminID, nil, now)
	require.NoError(t, err)

	before := ledger.Snapshot()
	userStats := ledger.Stats.UserStats("@b")
	window := ledger.Stats.GlobalStats(now)[adminID]

	_, err = ledger.CompleteTrade(trade.ID, adminID, &threePct, now)
	require.ErrorIs(t, err, domain.ErrAlreadyTerminal)
	_, err = ledger.RefundTrade(trade.ID, adminID, nil, now)
	require.ErrorIs(t, err, domain.ErrAlreadyTerminal)

	require.Equal(t, before, ledger.Snapshot())
	require.Equal(t, userStats, ledger.Stats.UserStats("@b"))
	require.Equal(t, window, ledger.Stats.GlobalStats(now)[adminID])
}

func TestLedgerHoldCount(t *testing.T) {
	ledger := domain.NewLedgerState(owners)
	ids := make([]uint64, 0, 3)
	for i := 0; i < 3; i++ {
		trade, err := ledger.CreateTrade(newTradeRequest("@b", "@s", 10), now)
		require.NoError(t, err)
		ids = append(ids, trade.ID)
	}
	require.Equal(t, 3, ledger.Stats.HoldCount(adminID))

	_, err := ledger.CompleteTrade(ids[0], adminID, nil, now)
	require.NoError(t, err)
	require.Equal(t, 2, ledger.Stats.HoldCount(adminID))

	// Hold is released for the opening admin even if someone else finalizes.
	_, err = ledger.RefundTrade(ids[1], otherAdmin, nil, now)
	require.NoError(t, err)
	require.Equal(t, 1, ledger.Stats.HoldCount(adminID))
	require.Equal(t, 0, ledger.Stats.HoldCount(otherAdmin))
}

func TestLedgerListTradesByParticipant(t *testing.T) {
	ledger := domain.NewLedgerState(owners)
	requests := []domain.TradeRequest{
		newTradeRequest("@alice", "@bob", 10),
		newTradeRequest("@bobby", "@carol", 20),
		newTradeRequest("@Carol", "@BOB", 30),
		newTradeRequest("555", "@dave", 40),
	}
	for i, req := range requests {
		_, err := ledger.CreateTrade(req, now.Add(time.Duration(len(requests)-i)*time.Minute))
		require.NoError(t, err)
	}

	seq := ledger.ListTradesByParticipant("@bob", "")
	ids := tradeIDs(seq)
	// Ordered by creation time, which is reversed with respect to ids here.
	require.Equal(t, []uint64{3, 1}, ids)
	// The sequence is restartable.
	require.Equal(t, ids, tradeIDs(seq))

	require.Equal(t, []uint64{4, 3}, tradeIDs(ledger.ListTradesByParticipant("@carol", "555")))
	require.Empty(t, tradeIDs(ledger.ListTradesByParticipant("@eve", "")))

	// Early stop.
	count := 0
	for range ledger.ListTradesByParticipant("@carol", "") {
		count++
		break
	}
	require.Equal(t, 1, count)
}

func TestLedgerListTradesByChatScope(t *testing.T) {
	ledger := domain.NewLedgerState(owners)
	for i, chatID := range []int64{-100, -200, -100} {
		req := newTradeRequest("@b", "@s", 10)
		req.ChatID = chatID
		_, err := ledger.CreateTrade(req, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	require.Equal(t, []uint64{1, 3}, tradeIDs(ledger.ListTradesByChatScope(-100)))
	require.Equal(t, []uint64{2}, tradeIDs(ledger.ListTradesByChatScope(-200)))
	require.Equal(t, []uint64{1, 2, 3}, tradeIDs(ledger.ListTradesByChatScope(0)))
}

func TestLedgerChatStatsAndSummary(t *testing.T) {
	ledger := domain.NewLedgerState(owners)
	for i := 0; i < 3; i++ {
		req := newTradeRequest("@b", "@s", int64(10*(i+1)))
		req.ChatID = -1
		_, err := ledger.CreateTrade(req, now)
		require.NoError(t, err)
	}
	_, err := ledger.CompleteTrade(1, adminID, nil, now)
	require.NoError(t, err)
	_, err = ledger.RefundTrade(2, otherAdmin, nil, now)
	require.NoError(t, err)

	stats := ledger.ChatStats(-1)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 1, stats.Open)
	require.Equal(t, 1, stats.Completed)
	require.Equal(t, 1, stats.Refunded)
	require.True(t, decimal.NewFromInt(60).Equal(stats.Volume))
	require.Zero(t, ledger.ChatStats(-2).Total)

	summary := ledger.AdminSummary()
	require.Len(t, summary, 2)
	require.Equal(t, 2, summary[adminID].Trades)
	require.True(t, decimal.NewFromInt(30).Equal(summary[adminID].Hold))
	require.True(t, decimal.NewFromInt(10).Equal(summary[adminID].Completed))
	require.True(t, decimal.NewFromInt(20).Equal(summary[otherAdmin].Refunded))
}

func TestLedgerSnapshotRoundTrip(t *testing.T) {
	ledger := domain.NewLedgerState(owners)
	_, err := ledger.Access.AddAdmin(1, adminID)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		req := newTradeRequest("@b", "@s", int64(i+1))
		if i%2 == 0 {
			req.FeePolicy = threePct
		}
		_, err := ledger.CreateTrade(req, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	_, err = ledger.CompleteTrade(1, adminID, nil, now)
	require.NoError(t, err)
	_, err = ledger.RefundTrade(2, adminID, &threePct, now)
	require.NoError(t, err)

	buf, err := json.Marshal(ledger.Snapshot())
	require.NoError(t, err)

	var snapshot domain.LedgerSnapshot
	require.NoError(t, json.Unmarshal(buf, &snapshot))

	restored, err := domain.RestoreLedgerState(owners, snapshot)
	require.NoError(t, err)
	require.Equal(t, ledger.NextID(), restored.NextID())
	require.Equal(t, ledger.Access.Admins(), restored.Access.Admins())

	original := slices.Collect(ledger.AllTrades())
	reloaded := slices.Collect(restored.AllTrades())
	require.Len(t, reloaded, len(original))
	for i := range original {
		requireSameTrade(t, original[i], reloaded[i])
	}

	require.Equal(t, ledger.Stats.HoldCount(adminID), restored.Stats.HoldCount(adminID))
	require.Equal(t, ledger.Stats.UserStats("@b").Deals, restored.Stats.UserStats("@b").Deals)
	require.True(t, ledger.Stats.UserStats("@b").Amount.Equal(restored.Stats.UserStats("@b").Amount))
}

func TestRestoreLedgerState(t *testing.T) {
	t.Run("next_id_is_never_reused", func(t *testing.T) {
		trade, err := domain.NewTrade(7, newTradeRequest("@b", "@s", 1), now)
		require.NoError(t, err)

		restored, err := domain.RestoreLedgerState(owners, domain.LedgerSnapshot{
			Trades: map[uint64]*domain.Trade{7: trade},
			NextID: 3,
		})
		require.NoError(t, err)
		require.Equal(t, uint64(8), restored.NextID())
	})

	t.Run("empty_snapshot", func(t *testing.T) {
		restored, err := domain.RestoreLedgerState(owners, domain.LedgerSnapshot{})
		require.NoError(t, err)
		require.Equal(t, uint64(1), restored.NextID())
	})

	t.Run("owners_are_not_stored_as_admins", func(t *testing.T) {
		restored, err := domain.RestoreLedgerState(owners, domain.LedgerSnapshot{
			AdminIDs: []int64{1, 5},
		})
		require.NoError(t, err)
		require.Equal(t, []int64{5}, restored.Access.Admins())
	})

	t.Run("total_is_derived_from_amount_and_fee", func(t *testing.T) {
		trade, err := domain.NewTrade(1, newTradeRequest("@b", "@s", 100), now)
		require.NoError(t, err)
		trade.Fee = decimal.NewFromInt(3)
		trade.Total = decimal.NewFromInt(999)

		restored, err := domain.RestoreLedgerState(owners, domain.LedgerSnapshot{
			Trades: map[uint64]*domain.Trade{1: trade},
		})
		require.NoError(t, err)
		found, ok := restored.FindTrade(1)
		require.True(t, ok)
		require.True(t, decimal.NewFromInt(103).Equal(found.Total))
	})

	t.Run("out_of_range_amount", func(t *testing.T) {
		trade, err := domain.NewTrade(1, newTradeRequest("@b", "@s", 1), now)
		require.NoError(t, err)
		trade.Amount = decimal.New(1, 99999999)

		_, err = domain.RestoreLedgerState(owners, domain.LedgerSnapshot{
			Trades: map[uint64]*domain.Trade{1: trade},
		})
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("mismatching_key", func(t *testing.T) {
		trade, err := domain.NewTrade(2, newTradeRequest("@b", "@s", 1), now)
		require.NoError(t, err)

		_, err = domain.RestoreLedgerState(owners, domain.LedgerSnapshot{
			Trades: map[uint64]*domain.Trade{3: trade},
		})
		require.Error(t, err)
	})
}

func newTradeRequest(buyer, seller string, amount int64) domain.TradeRequest {
	return domain.TradeRequest{
		Buyer:  buyer,
		Seller: seller,
		Amount: decimal.NewFromInt(amount),
		Admin:  adminID,
	}
}

func tradeIDs(seq func(yield func(*domain.Trade) bool)) []uint64 {
	ids := make([]uint64, 0)
	for t := range seq {
		ids = append(ids, t.ID)
	}
	return ids
}

func requireSameTrade(t *testing.T, expected, actual *domain.Trade) {
	t.Helper()
	require.Equal(t, expected.ID, actual.ID)
	require.Equal(t, expected.Buyer, actual.Buyer)
	require.Equal(t, expected.Seller, actual.Seller)
	require.True(t, expected.Amount.Equal(actual.Amount))
	require.True(t, expected.Fee.Equal(actual.Fee))
	require.True(t, expected.Total.Equal(actual.Total))
	require.Equal(t, expected.Status, actual.Status)
	require.Equal(t, expected.CreatedBy, actual.CreatedBy)
	require.Equal(t, expected.FinalizedBy, actual.FinalizedBy)
	require.Equal(t, expected.ChatID, actual.ChatID)
	require.True(t, expected.CreatedAt.Equal(actual.CreatedAt))
	require.True(t, expected.UpdatedAt.Equal(actual.UpdatedAt))
}

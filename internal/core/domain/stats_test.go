package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

func TestStatsUserStats(t *testing.T) {
	stats := domain.NewStatsAggregator()
	trade := newOpenTrade(t, threePct)
	stats.TrackOpenTrade(trade)

	require.Zero(t, stats.UserStats("@buyer").Deals)

	require.NoError(t, trade.Complete(adminID, nil, now))
	stats.RecordTerminalTrade(trade, now)

	for _, id := range []string{"@buyer", "@BUYER", " @seller "} {
		st := stats.UserStats(id)
		require.Equal(t, 1, st.Deals)
		// Principal only, fee excluded.
		require.True(t, decimal.NewFromInt(100).Equal(st.Amount))
	}
	require.Zero(t, stats.UserStats("@other").Deals)
}

func TestStatsWindowRollover(t *testing.T) {
	tests := []struct {
		name          string
		readAfter     time.Duration
		expectedDeals int
	}{
		{
			name:          "within_window",
			readAfter:     23*time.Hour + 59*time.Minute,
			expectedDeals: 1,
		},
		{
			name:          "window_expired",
			readAfter:     24*time.Hour + time.Second,
			expectedDeals: 0,
		},
		{
			name:          "exactly_24h",
			readAfter:     24 * time.Hour,
			expectedDeals: 0,
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stats := domain.NewStatsAggregator()
			trade := newOpenTrade(t, domain.NoFee)
			stats.TrackOpenTrade(trade)
			require.NoError(t, trade.Complete(adminID, nil, now))
			stats.RecordTerminalTrade(trade, now)

			readAt := now.Add(tt.readAfter)
			windows := stats.GlobalStats(readAt)
			require.Contains(t, windows, adminID)
			require.Equal(t, tt.expectedDeals, windows[adminID].Deals)
			if tt.expectedDeals == 0 {
				require.True(t, windows[adminID].Amount.IsZero())
				require.Equal(t, readAt, windows[adminID].WindowStart)
			} else {
				require.Equal(t, now, windows[adminID].WindowStart)
			}
		})
	}
}

func TestStatsWindowRolloverOnWrite(t *testing.T) {
	stats := domain.NewStatsAggregator()

	first := newOpenTrade(t, domain.NoFee)
	require.NoError(t, first.Complete(adminID, nil, now))
	stats.RecordTerminalTrade(first, now)

	later := now.Add(25 * time.Hour)
	second := newOpenTrade(t, domain.NoFee)
	second.Amount = decimal.NewFromInt(7)
	require.NoError(t, second.Refund(adminID, nil, later))
	stats.RecordTerminalTrade(second, later)

	w := stats.GlobalStats(later)[adminID]
	require.Equal(t, 1, w.Deals)
	require.True(t, decimal.NewFromInt(7).Equal(w.Amount))
	require.Equal(t, later, w.WindowStart)
}

func TestStatsWindowAttribution(t *testing.T) {
	stats := domain.NewStatsAggregator()
	trade := newOpenTrade(t, domain.NoFee)
	stats.TrackOpenTrade(trade)

	require.NoError(t, trade.Complete(otherAdmin, nil, now))
	stats.RecordTerminalTrade(trade, now)

	windows := stats.GlobalStats(now)
	require.Len(t, windows, 1)
	require.Equal(t, 1, windows[otherAdmin].Deals)
	require.Zero(t, stats.HoldCount(adminID))
}

func TestStatsHoldCountNeverNegative(t *testing.T) {
	stats := domain.NewStatsAggregator()
	trade := newOpenTrade(t, domain.NoFee)
	require.NoError(t, trade.Complete(adminID, nil, now))

	stats.RecordTerminalTrade(trade, now)
	require.Zero(t, stats.HoldCount(adminID))
}

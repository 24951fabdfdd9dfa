package telegraminterface

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

const (
	separator    = "────────────────"
	logSeparator = "------------------------"
	timeLayout   = "2006-01-02 15:04 MST"

	maxListedTrades = 20
)

type formatter struct {
	currency string
}

func (f formatter) amount(d decimal.Decimal) string {
	return f.currency + d.StringFixed(2)
}

func (f formatter) paymentReceived(t *domain.Trade) string {
	return strings.Join([]string{
		"✅ PAYMENT RECEIVED",
		separator,
		fmt.Sprintf("👤 Buyer  : %s", t.Buyer),
		fmt.Sprintf("👤 Seller : %s", t.Seller),
		fmt.Sprintf("💸 Received : %s", f.amount(t.Amount)),
		fmt.Sprintf("🆔 Trade ID : #%d", t.ID),
		fmt.Sprintf("💰 Fee     : %s", f.amount(t.Fee)),
		fmt.Sprintf("🧾 TOTAL   : %s", f.amount(t.Total)),
		"CONTINUE DEAL ❤️",
		separator,
	}, "\n")
}

func (f formatter) dealCompleted(t *domain.Trade, admin User) string {
	return strings.Join([]string{
		"✅ DEAL COMPLETED",
		separator,
		fmt.Sprintf("👤 Buyer  : %s", t.Buyer),
		fmt.Sprintf("👤 Seller : %s", t.Seller),
		fmt.Sprintf("💰 Amount : %s", f.amount(t.Amount)),
		fmt.Sprintf("🆔 Trade ID : #%d", t.ID),
		fmt.Sprintf("💰 Fee     : %s", f.amount(t.Fee)),
		fmt.Sprintf("🧾 TOTAL   : %s", f.amount(t.Total)),
		separator,
		fmt.Sprintf("🛡️ Escrowed by %s", escrowedBy(admin)),
	}, "\n")
}

func (f formatter) refundCompleted(t *domain.Trade, admin User) string {
	return strings.Join([]string{
		"❌ REFUND COMPLETED",
		separator,
		fmt.Sprintf("👤 Buyer  : %s", t.Buyer),
		fmt.Sprintf("👤 Seller : %s", t.Seller),
		fmt.Sprintf("💰 Refund : %s", f.amount(t.Amount)),
		fmt.Sprintf("🆔 Trade ID : #%d", t.ID),
		fmt.Sprintf("💰 Fee     : %s", f.amount(t.Fee)),
		separator,
		fmt.Sprintf("🛡️ Escrowed by %s", escrowedBy(admin)),
	}, "\n")
}

func (f formatter) tradeDetails(t *domain.Trade) string {
	lines := []string{
		fmt.Sprintf("🆔 Trade #%d", t.ID),
		separator,
		fmt.Sprintf("Buyer   : %s", t.Buyer),
		fmt.Sprintf("Seller  : %s", t.Seller),
		fmt.Sprintf("Amount  : %s", f.amount(t.Amount)),
		fmt.Sprintf("Fee     : %s", f.amount(t.Fee)),
		fmt.Sprintf("Total   : %s", f.amount(t.Total)),
		fmt.Sprintf("Status  : %s", t.Status),
		fmt.Sprintf("Admin   : %d", t.CreatedBy),
	}
	if t.FinalizedBy != 0 {
		lines = append(lines, fmt.Sprintf("Closed by: %d", t.FinalizedBy))
	}
	lines = append(lines,
		fmt.Sprintf("Created : %s", t.CreatedAt.UTC().Format(timeLayout)),
		fmt.Sprintf("Updated : %s", t.UpdatedAt.UTC().Format(timeLayout)),
	)
	return strings.Join(lines, "\n")
}

func logCopy(title, text string) string {
	return fmt.Sprintf("📜 %s (Log)\n%s\n%s", title, logSeparator, text)
}

func withFooter(text, footer string) string {
	if footer == "" {
		return text
	}
	return text + "\n\n" + footer
}

func (f formatter) userStats(stats domain.UserStats, open int) string {
	return strings.Join([]string{
		"📊 Your Stats",
		separator,
		fmt.Sprintf("Deals: %d", stats.Deals),
		fmt.Sprintf("Amount Escrowed: %s", f.amount(stats.Amount)),
		fmt.Sprintf("Open Trades: %d", open),
	}, "\n")
}

func (f formatter) tradeList(owner string, trades []*domain.Trade) string {
	parts := []string{fmt.Sprintf("📋 %d deals found for %s:", len(trades), owner)}
	listed := trades
	if len(listed) > maxListedTrades {
		listed = listed[len(listed)-maxListedTrades:]
		parts = append(parts, fmt.Sprintf("(showing the last %d)", maxListedTrades))
	}
	for _, t := range listed {
		parts = append(parts, strings.Join([]string{
			"",
			fmt.Sprintf("🆔 #%d", t.ID),
			fmt.Sprintf("Buyer: %s", t.Buyer),
			fmt.Sprintf("Seller: %s", t.Seller),
			fmt.Sprintf("Amount: %s", f.amount(t.Amount)),
			fmt.Sprintf("Status: %s", t.Status),
			fmt.Sprintf("Created: %s", t.CreatedAt.UTC().Format(timeLayout)),
		}, "\n"))
	}
	return strings.Join(parts, "\n")
}

func (f formatter) chatStats(stats domain.ChatStats) string {
	return strings.Join([]string{
		"📊 Group Stats",
		fmt.Sprintf("Total Trades: %d", stats.Total),
		fmt.Sprintf("Open: %d", stats.Open),
		fmt.Sprintf("Completed: %d", stats.Completed),
		fmt.Sprintf("Refunded: %d", stats.Refunded),
		fmt.Sprintf("Total Volume: %s", f.amount(stats.Volume)),
	}, "\n")
}

func (f formatter) globalStats(windows map[int64]domain.StatsWindow) string {
	lines := []string{"📊 Global Admin Stats (24h)", separator}
	admins := sortedKeys(windows)
	if len(admins) <= 0 {
		return strings.Join(append(lines, "No deals in the last 24h."), "\n")
	}
	for _, admin := range admins {
		w := windows[admin]
		lines = append(lines,
			fmt.Sprintf("👮 Admin: %d", admin),
			fmt.Sprintf("Deals: %d", w.Deals),
			fmt.Sprintf("Amount: %s", f.amount(w.Amount)),
			"",
		)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (f formatter) adminSummary(summary map[int64]domain.AdminSummary) string {
	lines := []string{"🌐 Global Stats (All time)"}
	admins := sortedKeys(summary)
	if len(admins) <= 0 {
		return strings.Join(append(lines, "No trades yet."), "\n")
	}
	for _, admin := range admins {
		s := summary[admin]
		lines = append(lines,
			"",
			fmt.Sprintf("Escrowed by : %d", admin),
			fmt.Sprintf("Hold        : %s", f.amount(s.Hold)),
			fmt.Sprintf("Completed   : %s", f.amount(s.Completed)),
			fmt.Sprintf("Refunded    : %s", f.amount(s.Refunded)),
			fmt.Sprintf("Total Trades: %d", s.Trades),
		)
	}
	return strings.Join(lines, "\n")
}

func adminList(list application.AdminList) string {
	lines := []string{"👮 Escrow Admins", separator}
	for _, id := range list.Owners {
		lines = append(lines, fmt.Sprintf("%d (owner)", id))
	}
	for _, id := range list.Admins {
		lines = append(lines, strconv.FormatInt(id, 10))
	}
	return strings.Join(lines, "\n")
}

func feeLabel(p domain.FeePolicy) string {
	if p.IsNone() {
		return "no fee"
	}
	return p.Percentage.String() + "%"
}

func escrowedBy(u User) string {
	if h := u.Handle(); h != "" {
		return h
	}
	return "@" + strconv.FormatInt(u.ID, 10)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

package telegraminterface

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

var (
	buyerRx      = regexp.MustCompile(`(?i)BUYER\s*[:\-]\s*(@[A-Za-z0-9_]+|\w+)`)
	sellerRx     = regexp.MustCompile(`(?i)SELLER\s*[:\-]\s*(@[A-Za-z0-9_]+|\w+)`)
	amountRx     = regexp.MustCompile(`(?i)DEAL\s*AMOUNT\s*[:\-]\s*\D{0,3}?([\d][\d.,]*(?:[eE][+\-]?\d+)?)`)
	infoRx       = regexp.MustCompile(`(?i)DEAL\s*INFO\s*[:\-]\s*(.+)`)
	timeToDealRx = regexp.MustCompile(`(?i)TIME\s*TO\s*DEAL\s*[:\-]\s*(.+)`)
	tradeRefRx   = regexp.MustCompile(`#(?:TID)?(\d+)`)

	// ErrIncompleteForm is returned when buyer, seller or amount can not be
	// extracted from a deal form.
	ErrIncompleteForm = errors.New("deal form is missing buyer, seller or amount")
)

// DealForm is the template users fill in to ask an admin to escrow a deal:
//
//	BUYER: @alice
//	SELLER: @bob
//	DEAL AMOUNT: 1,500
//	DEAL INFO: 1 month subscription
//	TIME TO DEAL: 2h
type DealForm struct {
	Buyer      string
	Seller     string
	Amount     decimal.Decimal
	Info       string
	TimeToDeal string
}

// ParseDealForm extracts the deal details from a filled form. Labels are
// matched case-insensitively and may be followed by ':' or '-'.
func ParseDealForm(text string) (*DealForm, error) {
	buyer := firstGroup(buyerRx, text)
	seller := firstGroup(sellerRx, text)
	rawAmount := firstGroup(amountRx, text)
	if buyer == "" || seller == "" || rawAmount == "" {
		return nil, ErrIncompleteForm
	}

	amount, err := parseAmount(rawAmount)
	if err != nil {
		return nil, err
	}

	return &DealForm{
		Buyer:      buyer,
		Seller:     seller,
		Amount:     amount,
		Info:       firstGroup(infoRx, text),
		TimeToDeal: firstGroup(timeToDealRx, text),
	}, nil
}

// ParseTradeRef finds the first trade reference (#12, #TID12) in the text.
func ParseTradeRef(text string) (uint64, bool) {
	m := tradeRefRx.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parseTradeArg accepts a trade id given as argument, with or without '#'.
func parseTradeArg(arg string) (uint64, bool) {
	if id, ok := ParseTradeRef(arg); ok {
		return id, true
	}
	id, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parseAmount parses amounts like "1,500.50", "₹200" or "$10".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.' && r != '-'
	})
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimRight(s, ".")
	return domain.ParseAmount(s)
}

func parseUserID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func firstGroup(rx *regexp.Regexp, text string) string {
	m := rx.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeStatusOpen TradeStatus = iota
	TradeStatusCompleted
	TradeStatusRefunded
)

var (
	tradeStatusToString = map[TradeStatus]string{
		TradeStatusOpen:      "open",
		TradeStatusCompleted: "completed",
		TradeStatusRefunded:  "refunded",
	}
	stringToTradeStatus = map[string]TradeStatus{
		"open":      TradeStatusOpen,
		"hold":      TradeStatusOpen,
		"completed": TradeStatusCompleted,
		"refunded":  TradeStatusRefunded,
	}
)

// TradeStatus represents the different statuses that a trade can assume.
type TradeStatus int

// TradeStatusFromString returns the status matching the given label. The
// legacy "hold" label is accepted as an alias of "open".
func TradeStatusFromString(status string) (TradeStatus, bool) {
	s, ok := stringToTradeStatus[strings.ToLower(status)]
	return s, ok
}

func (s TradeStatus) String() string {
	str, ok := tradeStatusToString[s]
	if !ok {
		return "unknown"
	}
	return str
}

// IsTerminal returns whether no further transition is permitted.
func (s TradeStatus) IsTerminal() bool {
	return s == TradeStatusCompleted || s == TradeStatusRefunded
}

func (s TradeStatus) MarshalText() ([]byte, error) {
	str, ok := tradeStatusToString[s]
	if !ok {
		return nil, fmt.Errorf("unknown trade status %d", int(s))
	}
	return []byte(str), nil
}

func (s *TradeStatus) UnmarshalText(text []byte) error {
	status, ok := TradeStatusFromString(string(text))
	if !ok {
		return fmt.Errorf("unknown trade status %q", string(text))
	}
	*s = status
	return nil
}

// Trade is the data structure representing one escrow transaction.
type Trade struct {
	ID              uint64          `json:"id"`
	Buyer           string          `json:"buyer"`
	Seller          string          `json:"seller"`
	Amount          decimal.Decimal `json:"amount"`
	Fee             decimal.Decimal `json:"fee"`
	Total           decimal.Decimal `json:"total"`
	Status          TradeStatus     `json:"status"`
	CreatedBy       int64           `json:"admin"`
	FinalizedBy     int64           `json:"finalized_by,omitempty"`
	ChatID          int64           `json:"chat_id,omitempty"`
	OriginMessageID int             `json:"origin_message_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TradeRequest holds the already validated arguments for opening a trade.
type TradeRequest struct {
	Buyer           string
	Seller          string
	Amount          decimal.Decimal
	Admin           int64
	FeePolicy       FeePolicy
	ChatID          int64
	OriginMessageID int
}

// NewTrade returns an open trade with the given id, computing fee and total
// with the request's fee policy.
func NewTrade(id uint64, req TradeRequest, now time.Time) (*Trade, error) {
	if !IsValidAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}
	if err := req.FeePolicy.Validate(); err != nil {
		return nil, err
	}
	buyer, seller := strings.TrimSpace(req.Buyer), strings.TrimSpace(req.Seller)
	if buyer == "" || seller == "" {
		return nil, ErrMissingParticipant
	}

	t := &Trade{
		ID:              id,
		Buyer:           buyer,
		Seller:          seller,
		Amount:          req.Amount,
		Status:          TradeStatusOpen,
		CreatedBy:       req.Admin,
		ChatID:          req.ChatID,
		OriginMessageID: req.OriginMessageID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	t.applyFee(req.FeePolicy)
	return t, nil
}

package domain

import (
	"strings"
	"time"
)

// Complete brings an open trade to the Completed status. If the trade was
// opened without fee and a fee policy is given, the fee is added
// retroactively before finalizing. Fees are never doubled.
func (t *Trade) Complete(admin int64, feeOverride *FeePolicy, now time.Time) error {
	return t.finalize(TradeStatusCompleted, admin, feeOverride, now)
}

// Refund brings an open trade to the Refunded status, with the same fee
// semantics of Complete.
func (t *Trade) Refund(admin int64, feeOverride *FeePolicy, now time.Time) error {
	return t.finalize(TradeStatusRefunded, admin, feeOverride, now)
}

// IsOpen returns whether the trade is still waiting to be finalized.
func (t *Trade) IsOpen() bool {
	return t.Status == TradeStatusOpen
}

// IsCompleted returns whether the trade is in Completed status.
func (t *Trade) IsCompleted() bool {
	return t.Status == TradeStatusCompleted
}

// IsRefunded returns whether the trade is in Refunded status.
func (t *Trade) IsRefunded() bool {
	return t.Status == TradeStatusRefunded
}

// IsTerminal returns whether the trade is either completed or refunded.
func (t *Trade) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// RecordingAdmin returns the admin the trade is attributed to: the one who
// finalized it, or the one who opened it if still open.
func (t *Trade) RecordingAdmin() int64 {
	if t.FinalizedBy != 0 {
		return t.FinalizedBy
	}
	return t.CreatedBy
}

// HasParticipant returns whether buyer or seller equals, case-insensitively,
// either the given identifier or the optional alias.
func (t *Trade) HasParticipant(identifier, alias string) bool {
	for _, id := range []string{identifier, alias} {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if strings.EqualFold(t.Buyer, id) || strings.EqualFold(t.Seller, id) {
			return true
		}
	}
	return false
}

// Copy returns a detached copy of the trade.
func (t *Trade) Copy() *Trade {
	c := *t
	return &c
}

func (t *Trade) finalize(
	status TradeStatus, admin int64, feeOverride *FeePolicy, now time.Time,
) error {
	if t.IsTerminal() {
		return ErrAlreadyTerminal
	}
	if feeOverride != nil {
		if err := feeOverride.Validate(); err != nil {
			return err
		}
		if t.Fee.IsZero() {
			t.applyFee(*feeOverride)
		}
	}

	t.Status = status
	t.FinalizedBy = admin
	t.UpdatedAt = now
	return nil
}

// applyFee sets fee and total so that Total == Amount + Fee always holds.
func (t *Trade) applyFee(policy FeePolicy) {
	t.Fee = policy.FeeFor(t.Amount)
	t.Total = t.Amount.Add(t.Fee)
}

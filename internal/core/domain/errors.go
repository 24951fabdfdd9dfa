package domain

import "errors"

var (
	// ErrPermissionDenied is returned when the requester lacks the privilege
	// (owner or admin) required by the operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidAmount is returned when a trade amount is negative or
	// out of the supported range.
	ErrInvalidAmount = errors.New("amount must be a finite non-negative number")
	// ErrInvalidFeePercentage ...
	ErrInvalidFeePercentage = errors.New("fee percentage must be in range [0, 100]")
	// ErrTradeNotFound is returned when no trade matches the given id.
	ErrTradeNotFound = errors.New("trade not found")
	// ErrAlreadyTerminal is returned when attempting to complete or refund a
	// trade that is already completed or refunded.
	ErrAlreadyTerminal = errors.New("trade is already completed or refunded")
	// ErrMissingParticipant ...
	ErrMissingParticipant = errors.New("buyer and seller must not be empty")
)

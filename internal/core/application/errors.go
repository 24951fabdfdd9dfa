package application

import "errors"

var (
	// ErrPersistenceWriteFailed is returned along with the result of a
	// mutation when the ledger could not be flushed to the state repository.
	// The mutation is kept in memory and will be flushed by the next write.
	ErrPersistenceWriteFailed = errors.New("failed to persist ledger state")
	// ErrMissingStateRepository ...
	ErrMissingStateRepository = errors.New("state repository must not be null")
	// ErrMissingOwners is returned if the service is started without owners,
	// in which case nobody could ever manage admins.
	ErrMissingOwners = errors.New("at least one owner is required")
)

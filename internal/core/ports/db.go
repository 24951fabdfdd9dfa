package ports

import (
	"context"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

// StateRepository persists the whole ledger as a single document.
type StateRepository interface {
	// Load returns the last saved snapshot, or nil if nothing was ever saved.
	Load(ctx context.Context) (*domain.LedgerSnapshot, error)
	// Save replaces the stored snapshot. Implementations must never leave a
	// partially written state behind.
	Save(ctx context.Context, snapshot domain.LedgerSnapshot) error
	Close() error
}

package inmemory

import (
	"context"
	"sync"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

type stateInmemoryStore struct {
	snapshot *domain.LedgerSnapshot
	locker   *sync.Mutex
}

type stateRepositoryImpl struct {
	store *stateInmemoryStore
}

// NewStateRepositoryImpl returns a new inmemory StateRepository
// implementation, used when persistence is disabled.
func NewStateRepositoryImpl() ports.StateRepository {
	return &stateRepositoryImpl{
		store: &stateInmemoryStore{locker: &sync.Mutex{}},
	}
}

func (r *stateRepositoryImpl) Load(_ context.Context) (*domain.LedgerSnapshot, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if r.store.snapshot == nil {
		return nil, nil
	}
	snapshot := copySnapshot(*r.store.snapshot)
	return &snapshot, nil
}

func (r *stateRepositoryImpl) Save(
	_ context.Context, snapshot domain.LedgerSnapshot,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	s := copySnapshot(snapshot)
	r.store.snapshot = &s
	return nil
}

func (r *stateRepositoryImpl) Close() error {
	return nil
}

func copySnapshot(snapshot domain.LedgerSnapshot) domain.LedgerSnapshot {
	trades := make(map[uint64]*domain.Trade, len(snapshot.Trades))
	for id, t := range snapshot.Trades {
		trades[id] = t.Copy()
	}
	return domain.LedgerSnapshot{
		Trades:   trades,
		AdminIDs: append([]int64{}, snapshot.AdminIDs...),
		NextID:   snapshot.NextID,
	}
}

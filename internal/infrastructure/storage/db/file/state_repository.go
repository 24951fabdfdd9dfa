package filedb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

const (
	// StateFilename is the name of the file holding the ledger inside the
	// datadir.
	StateFilename = "state.json"

	tmpFilePattern = "state-*.json.tmp"
)

// legacyState holds the keys of state files written by the previous bot that
// the current layout names differently.
type legacyState struct {
	Admins []int64                 `json:"admins"`
	Trades map[uint64]*legacyTrade `json:"trades"`
}

type legacyTrade struct {
	CompletedBy int64 `json:"completed_by"`
	RefundedBy  int64 `json:"refunded_by"`
}

type stateRepository struct {
	lock sync.Mutex
	path string
}

// NewStateRepository returns a StateRepository backed by a single JSON
// document in the given directory, created if missing.
func NewStateRepository(datadir string) (ports.StateRepository, error) {
	if err := os.MkdirAll(datadir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %w", err)
	}
	return &stateRepository{
		path: filepath.Join(datadir, StateFilename),
	}, nil
}

// ReadSnapshot decodes the state file at the given path without taking any
// ownership on it. It returns nil if the file does not exist or is empty.
// Files written by the previous bot (admins, completed_by, refunded_by) are
// accepted as well.
func ReadSnapshot(path string) (*domain.LedgerSnapshot, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(buf)) <= 0 {
		return nil, nil
	}

	snapshot := &domain.LedgerSnapshot{}
	if err := json.Unmarshal(buf, snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if snapshot.Trades == nil {
		snapshot.Trades = make(map[uint64]*domain.Trade)
	}

	legacy := legacyState{}
	if err := json.Unmarshal(buf, &legacy); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	migrateLegacyState(snapshot, legacy)
	return snapshot, nil
}

func migrateLegacyState(snapshot *domain.LedgerSnapshot, legacy legacyState) {
	if snapshot.AdminIDs == nil && len(legacy.Admins) > 0 {
		snapshot.AdminIDs = legacy.Admins
	}
	for id, lt := range legacy.Trades {
		trade := snapshot.Trades[id]
		if lt == nil || trade == nil || trade.FinalizedBy != 0 {
			continue
		}
		switch trade.Status {
		case domain.TradeStatusCompleted:
			trade.FinalizedBy = lt.CompletedBy
		case domain.TradeStatusRefunded:
			trade.FinalizedBy = lt.RefundedBy
		}
	}
}

func (r *stateRepository) Load(_ context.Context) (*domain.LedgerSnapshot, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return ReadSnapshot(r.path)
}

// Save writes the snapshot to a temporary file in the same directory and
// renames it over the state file, so that readers either see the previous
// or the new state, never a partial one.
func (r *stateRepository) Save(
	ctx context.Context, snapshot domain.LedgerSnapshot,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	buf, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), tmpFilePattern)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			//nolint
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(buf); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, r.path); err != nil {
		return err
	}

	log.WithField("path", r.path).Tracef(
		"ledger state persisted (%d trades)", len(snapshot.Trades),
	)
	return nil
}

func (r *stateRepository) Close() error {
	return nil
}

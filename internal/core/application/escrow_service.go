package application

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

type EscrowService interface {
	IsOwner(userID int64) bool
	IsAdmin(userID int64) bool
	AddAdmin(ctx context.Context, requester, target int64) (bool, error)
	RemoveAdmin(ctx context.Context, requester, target int64) (bool, error)
	ClearAdmins(ctx context.Context, requester int64) error
	ListAdmins() AdminList

	CreateTrade(
		ctx context.Context, requester int64, req TradeRequest,
	) (*domain.Trade, error)
	GetTrade(id uint64) (*domain.Trade, error)
	CompleteTrade(
		ctx context.Context, requester int64, id uint64, withFee bool,
	) (*domain.Trade, error)
	RefundTrade(
		ctx context.Context, requester int64, id uint64, withFee bool,
	) (*domain.Trade, error)
	ListTradesByParticipant(identifier, alias string) iter.Seq[*domain.Trade]
	ListTradesByChatScope(chatID int64) iter.Seq[*domain.Trade]

	GetUserStats(identifier string) domain.UserStats
	GetGlobalStats() map[int64]domain.StatsWindow
	GetHoldCount(admin int64) int
	GetChatStats(chatID int64) domain.ChatStats
	GetAdminSummary() map[int64]domain.AdminSummary

	FeePolicy() domain.FeePolicy
}

type escrowService struct {
	lock      sync.Mutex
	ledger    *domain.LedgerState
	repo      ports.StateRepository
	publisher ports.Publisher
	clock     ports.Clock
	feePolicy domain.FeePolicy
}

// NewEscrowService loads the ledger from the given repository and returns
// the service owning it. Publisher and clock are optional.
func NewEscrowService(
	ctx context.Context,
	owners []int64,
	feePolicy domain.FeePolicy,
	repo ports.StateRepository,
	publisher ports.Publisher,
	clock ports.Clock,
) (EscrowService, error) {
	return newEscrowService(ctx, owners, feePolicy, repo, publisher, clock)
}

func newEscrowService(
	ctx context.Context,
	owners []int64,
	feePolicy domain.FeePolicy,
	repo ports.StateRepository,
	publisher ports.Publisher,
	clock ports.Clock,
) (*escrowService, error) {
	if repo == nil {
		return nil, ErrMissingStateRepository
	}
	if len(owners) <= 0 {
		return nil, ErrMissingOwners
	}
	if err := feePolicy.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = systemClock{}
	}

	snapshot, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger state: %w", err)
	}

	ledger := domain.NewLedgerState(owners)
	if snapshot != nil {
		ledger, err = domain.RestoreLedgerState(owners, *snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to restore ledger state: %w", err)
		}
		log.WithFields(log.Fields{
			"trades":  len(snapshot.Trades),
			"admins":  len(ledger.Access.Admins()),
			"next_id": ledger.NextID(),
		}).Info("ledger state restored")
	}

	return &escrowService{
		ledger:    ledger,
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		feePolicy: feePolicy,
	}, nil
}

func (s *escrowService) IsOwner(userID int64) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ledger.Access.IsOwner(userID)
}

func (s *escrowService) IsAdmin(userID int64) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ledger.Access.IsAdmin(userID)
}

func (s *escrowService) AddAdmin(
	ctx context.Context, requester, target int64,
) (bool, error) {
	var added bool
	err := s.mutate(ctx, func(l *domain.LedgerState) (err error) {
		added, err = l.Access.AddAdmin(requester, target)
		return
	})
	if added && publishable(err) {
		go publishAdminTopic(s.publisher, AdminAdded, requester, target)
	}
	return added, err
}

func (s *escrowService) RemoveAdmin(
	ctx context.Context, requester, target int64,
) (bool, error) {
	var removed bool
	err := s.mutate(ctx, func(l *domain.LedgerState) (err error) {
		removed, err = l.Access.RemoveAdmin(requester, target)
		return
	})
	if removed && publishable(err) {
		go publishAdminTopic(s.publisher, AdminRemoved, requester, target)
	}
	return removed, err
}

func (s *escrowService) ClearAdmins(ctx context.Context, requester int64) error {
	err := s.mutate(ctx, func(l *domain.LedgerState) error {
		return l.Access.ClearAdmins(requester)
	})
	if publishable(err) {
		go publishAdminTopic(s.publisher, AdminsCleared, requester, 0)
	}
	return err
}

func (s *escrowService) ListAdmins() AdminList {
	s.lock.Lock()
	defer s.lock.Unlock()

	return AdminList{
		Owners: s.ledger.Access.Owners(),
		Admins: s.ledger.Access.Admins(),
	}
}

func (s *escrowService) CreateTrade(
	ctx context.Context, requester int64, req TradeRequest,
) (*domain.Trade, error) {
	feePolicy := domain.NoFee
	if req.WithFee {
		feePolicy = s.feePolicy
	}

	var trade *domain.Trade
	err := s.mutate(ctx, func(l *domain.LedgerState) (err error) {
		if !l.Access.IsAdmin(requester) {
			return domain.ErrPermissionDenied
		}
		trade, err = l.CreateTrade(domain.TradeRequest{
			Buyer:           req.Buyer,
			Seller:          req.Seller,
			Amount:          req.Amount,
			Admin:           requester,
			FeePolicy:       feePolicy,
			ChatID:          req.ChatID,
			OriginMessageID: req.OriginMessageID,
		}, s.clock.Now())
		return
	})
	if !publishable(err) {
		return nil, err
	}

	log.WithFields(log.Fields{
		"trade_id": trade.ID,
		"admin":    requester,
		"amount":   trade.Amount.String(),
		"fee":      trade.Fee.String(),
	}).Info("trade created")

	go publishTradeTopic(s.publisher, TradeCreated, trade)
	return trade, err
}

func (s *escrowService) GetTrade(id uint64) (*domain.Trade, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	trade, ok := s.ledger.FindTrade(id)
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return trade, nil
}

func (s *escrowService) CompleteTrade(
	ctx context.Context, requester int64, id uint64, withFee bool,
) (*domain.Trade, error) {
	return s.finalizeTrade(ctx, requester, id, withFee, TradeCompleted)
}

func (s *escrowService) RefundTrade(
	ctx context.Context, requester int64, id uint64, withFee bool,
) (*domain.Trade, error) {
	return s.finalizeTrade(ctx, requester, id, withFee, TradeRefunded)
}

func (s *escrowService) ListTradesByParticipant(
	identifier, alias string,
) iter.Seq[*domain.Trade] {
	return s.listTrades(func(l *domain.LedgerState) iter.Seq[*domain.Trade] {
		return l.ListTradesByParticipant(identifier, alias)
	})
}

func (s *escrowService) ListTradesByChatScope(chatID int64) iter.Seq[*domain.Trade] {
	return s.listTrades(func(l *domain.LedgerState) iter.Seq[*domain.Trade] {
		return l.ListTradesByChatScope(chatID)
	})
}

func (s *escrowService) GetUserStats(identifier string) domain.UserStats {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ledger.Stats.UserStats(identifier)
}

func (s *escrowService) GetGlobalStats() map[int64]domain.StatsWindow {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ledger.Stats.GlobalStats(s.clock.Now())
}

func (s *escrowService) GetHoldCount(admin int64) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ledger.Stats.HoldCount(admin)
}

func (s *escrowService) GetChatStats(chatID int64) domain.ChatStats {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ledger.ChatStats(chatID)
}

func (s *escrowService) GetAdminSummary() map[int64]domain.AdminSummary {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ledger.AdminSummary()
}

func (s *escrowService) FeePolicy() domain.FeePolicy {
	return s.feePolicy
}

func (s *escrowService) finalizeTrade(
	ctx context.Context, requester int64, id uint64, withFee bool, topic Topic,
) (*domain.Trade, error) {
	var feeOverride *domain.FeePolicy
	if withFee {
		feePolicy := s.feePolicy
		feeOverride = &feePolicy
	}

	var trade *domain.Trade
	err := s.mutate(ctx, func(l *domain.LedgerState) (err error) {
		if !l.Access.IsAdmin(requester) {
			return domain.ErrPermissionDenied
		}
		now := s.clock.Now()
		if topic == TradeRefunded {
			trade, err = l.RefundTrade(id, requester, feeOverride, now)
		} else {
			trade, err = l.CompleteTrade(id, requester, feeOverride, now)
		}
		return
	})
	if !publishable(err) {
		return nil, err
	}

	log.WithFields(log.Fields{
		"trade_id": trade.ID,
		"admin":    requester,
		"status":   trade.Status.String(),
	}).Info("trade finalized")

	go publishTradeTopic(s.publisher, topic, trade)
	return trade, err
}

// mutate runs the given mutation under the ledger lock and flushes the
// ledger if it succeeds. A failing flush does not revert the mutation.
func (s *escrowService) mutate(
	ctx context.Context, mutation func(l *domain.LedgerState) error,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := mutation(s.ledger); err != nil {
		return err
	}

	if err := s.repo.Save(ctx, s.ledger.Snapshot()); err != nil {
		log.WithError(err).Warn("failed to persist ledger state")
		return fmt.Errorf("%w: %w", ErrPersistenceWriteFailed, err)
	}
	return nil
}

// listTrades takes a snapshot of the listed trades under the lock every time
// the returned sequence is ranged over, and yields without holding it.
func (s *escrowService) listTrades(
	list func(l *domain.LedgerState) iter.Seq[*domain.Trade],
) iter.Seq[*domain.Trade] {
	return func(yield func(*domain.Trade) bool) {
		s.lock.Lock()
		trades := slices.Collect(list(s.ledger))
		s.lock.Unlock()

		for _, trade := range trades {
			if !yield(trade) {
				return
			}
		}
	}
}

// publishable returns whether the mutation that returned err was committed.
func publishable(err error) bool {
	return err == nil || errors.Is(err, ErrPersistenceWriteFailed)
}

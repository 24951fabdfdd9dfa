package telegraminterface

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/interfaces"
)

type service struct {
	source      UpdateSource
	router      *Router
	pollTimeout int

	lock   sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService returns the chat bot interface. Updates are handled one at a
// time, in the order they are received.
func NewService(
	source UpdateSource, router *Router, pollTimeout int,
) interfaces.Service {
	return &service{
		source:      source,
		router:      router,
		pollTimeout: pollTimeout,
	}
}

func (s *service) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.done != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	updates := s.source.Updates(s.pollTimeout)
	go func() {
		defer close(s.done)
		for msg := range updates {
			s.router.HandleMessage(ctx, msg)
		}
	}()

	log.Info("chat bot started")
	return nil
}

func (s *service) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.done == nil {
		return
	}

	s.source.StopUpdates()
	<-s.done
	s.cancel()
	s.done = nil

	log.Info("chat bot stopped")
}

package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

// **** State repository ****

type mockStateRepository struct {
	mock.Mock
}

func (m *mockStateRepository) Load(ctx context.Context) (*domain.LedgerSnapshot, error) {
	args := m.Called(ctx)

	var res *domain.LedgerSnapshot
	if a := args.Get(0); a != nil {
		res = a.(*domain.LedgerSnapshot)
	}
	return res, args.Error(1)
}

func (m *mockStateRepository) Save(
	ctx context.Context, snapshot domain.LedgerSnapshot,
) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *mockStateRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

// **** Publisher ****

type publishedMessage struct {
	topic   string
	message string
}

type fakePublisher struct {
	lock     sync.Mutex
	messages []publishedMessage
	err      error
}

func (p *fakePublisher) Publish(topic, message string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.messages = append(p.messages, publishedMessage{topic, message})
	return p.err
}

func (p *fakePublisher) published() []publishedMessage {
	p.lock.Lock()
	defer p.lock.Unlock()

	return append([]publishedMessage{}, p.messages...)
}

func (p *fakePublisher) reset() {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.messages = nil
}

func (p *fakePublisher) topics() []string {
	topics := make([]string, 0)
	for _, m := range p.published() {
		topics = append(topics, m.topic)
	}
	return topics
}

// **** Clock ****

type fakeClock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.now = c.now.Add(d)
}

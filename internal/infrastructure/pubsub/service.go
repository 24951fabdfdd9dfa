package pubsub

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/pkg/circuitbreaker"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRequestTimeout is used when the service is created with a
	// non-positive timeout.
	DefaultRequestTimeout = 15 * time.Second

	tokenValidity = 5 * time.Minute
)

type service struct {
	store    store
	webhooks *webhookClient
	cb       *gobreaker.CircuitBreaker
}

// NewService returns a pubsub service delivering every published message to
// the webhooks subscribed for its topic or for any topic.
func NewService(requestTimeout time.Duration) ports.PubSub {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &service{
		store:    newStore(),
		webhooks: newWebhookClient(requestTimeout),
		cb:       circuitbreaker.NewCircuitBreaker("webhooks"),
	}
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}

	ws.store.add(*sub)
	log.WithFields(log.Fields{
		"topic":    sub.Event,
		"endpoint": sub.Endpoint,
	}).Debug("added webhook")
	return sub.ID, nil
}

func (ws *service) Unsubscribe(_, id string) error {
	if _, ok := ws.store.remove(id); !ok {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	return ws.listSubscriptionsForTopic(topic).toPortable()
}

func (ws *service) Publish(topic string, message string) error {
	return ws.publishForTopic(topic, message)
}

func (ws *service) listSubscriptionsForTopic(topic string) subscriptions {
	subs := ws.store.get(topic)
	if topic != ports.AnyTopic && topic != ports.UnspecifiedTopic {
		subsForAnyTopic := ws.store.get(ports.AnyTopic)
		subs = append(subs, subsForAnyTopic...)
	}
	return subs
}

func (ws *service) publishForTopic(topic, message string) error {
	subs := ws.listSubscriptionsForTopic(topic)

	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(sub, topic, message) })
	}
	return eg.Wait()
}

func (ws *service) doRequest(sub Subscription, topic, payload string) error {
	_, err := ws.cb.Execute(func() (interface{}, error) {
		return nil, ws.webhooks.notify(sub, topic, payload)
	})
	return err
}

package pubsub

import "errors"

var (
	// ErrUnknownTopic is returned whenever attempting to subscribe to a topic
	// that is not published by the ledger.
	ErrUnknownTopic = errors.New("topic is unknown")
	// ErrSubscriptionNotFound ...
	ErrSubscriptionNotFound = errors.New("webhook not found")
	// ErrDeliveryRejected is returned when a webhook replies with a non 2xx
	// status.
	ErrDeliveryRejected = errors.New("webhook rejected the event")
)

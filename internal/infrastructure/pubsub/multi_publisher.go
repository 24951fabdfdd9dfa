package pubsub

import (
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

type multiPublisher []ports.Publisher

// NewMultiPublisher returns a publisher forwarding every message to all the
// given ones concurrently. Nil publishers are skipped. The returned error is
// the first one encountered, if any.
func NewMultiPublisher(publishers ...ports.Publisher) ports.Publisher {
	mp := make(multiPublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			mp = append(mp, p)
		}
	}
	return mp
}

func (mp multiPublisher) Publish(topic, message string) error {
	eg := &errgroup.Group{}
	for i := range mp {
		p := mp[i]
		eg.Go(func() error { return p.Publish(topic, message) })
	}
	return eg.Wait()
}

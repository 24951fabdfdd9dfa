package pubsub

import (
	"sort"
	"sync"

	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// store keeps subscriptions in memory, indexed by id and by topic.
// Subscriptions are registered at startup from configuration, so there is
// nothing to persist.
type store struct {
	lock    *sync.RWMutex
	subs    map[string]Subscription
	byTopic map[string][]string
}

func newStore() store {
	return store{
		lock:    &sync.RWMutex{},
		subs:    make(map[string]Subscription),
		byTopic: make(map[string][]string),
	}
}

func (s store) add(sub Subscription) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.subs[sub.ID]; ok {
		return false
	}
	s.subs[sub.ID] = sub
	s.byTopic[sub.Event] = append(s.byTopic[sub.Event], sub.ID)
	return true
}

func (s store) remove(id string) (Subscription, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return Subscription{}, false
	}
	delete(s.subs, id)

	ids := s.byTopic[sub.Event]
	for i, subID := range ids {
		if subID == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) <= 0 {
		delete(s.byTopic, sub.Event)
	} else {
		s.byTopic[sub.Event] = ids
	}
	return sub, true
}

// get returns the subscriptions for the given topic, sorted by id. The
// unspecified topic returns every subscription.
func (s store) get(topic string) subscriptions {
	s.lock.RLock()
	defer s.lock.RUnlock()

	subs := make(subscriptions, 0)
	if topic == ports.UnspecifiedTopic {
		for _, sub := range s.subs {
			subs = append(subs, sub)
		}
	} else {
		for _, id := range s.byTopic[topic] {
			subs = append(subs, s.subs[id])
		}
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].ID < subs[j].ID
	})
	return subs
}

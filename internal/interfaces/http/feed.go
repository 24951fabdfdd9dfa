package httpinterface

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/thanhpk/randstr"
)

const (
	clientQueueSize = 64
	writeTimeout    = 10 * time.Second
)

// Event is the frame sent to the clients of the live feed.
type Event struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

type feedClient struct {
	id     string
	topic  string
	conn   *websocket.Conn
	events chan []byte
}

// EventFeed streams ledger events to websocket clients. It satisfies the
// publisher interface. Clients can restrict the stream to a single topic
// with the `topic` query parameter.
type EventFeed struct {
	lock     sync.RWMutex
	clients  map[string]*feedClient
	upgrader websocket.Upgrader
}

func NewEventFeed() *EventFeed {
	return &EventFeed{
		clients: make(map[string]*feedClient),
		// The zero upgrader rejects browsers from other origins.
		upgrader: websocket.Upgrader{},
	}
}

// Publish never blocks: slow clients whose queue is full miss the event.
func (f *EventFeed) Publish(topic, message string) error {
	payload := json.RawMessage(message)
	if !json.Valid(payload) {
		payload, _ = json.Marshal(message)
	}
	frame, err := json.Marshal(Event{
		Topic:   topic,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	f.lock.RLock()
	defer f.lock.RUnlock()

	for _, c := range f.clients {
		if c.topic != ports.UnspecifiedTopic && c.topic != ports.AnyTopic &&
			c.topic != topic {
			continue
		}
		select {
		case c.events <- frame:
		default:
			log.WithField("client", c.id).Warn("feed client too slow, event dropped")
		}
	}
	return nil
}

// NumOfClients returns the number of connected clients.
func (f *EventFeed) NumOfClients() int {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return len(f.clients)
}

// Handler upgrades the request to a websocket connection and registers the
// client until it disconnects.
func (f *EventFeed) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := f.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Debug("websocket upgrade failed")
			return
		}

		c := &feedClient{
			id:     randstr.Hex(8),
			topic:  r.URL.Query().Get("topic"),
			conn:   conn,
			events: make(chan []byte, clientQueueSize),
		}
		f.addClient(c)

		go f.writeLoop(c)
		go f.readLoop(c)
	}
}

// Close disconnects every client.
func (f *EventFeed) Close() {
	f.lock.Lock()
	defer f.lock.Unlock()

	for id, c := range f.clients {
		close(c.events)
		delete(f.clients, id)
	}
}

func (f *EventFeed) addClient(c *feedClient) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.clients[c.id] = c
	log.WithFields(log.Fields{
		"client": c.id,
		"topic":  c.topic,
	}).Debug("feed client connected")
}

func (f *EventFeed) removeClient(c *feedClient) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if _, ok := f.clients[c.id]; !ok {
		return
	}
	close(c.events)
	delete(f.clients, c.id)
	log.WithField("client", c.id).Debug("feed client disconnected")
}

func (f *EventFeed) writeLoop(c *feedClient) {
	defer c.conn.Close()

	for frame := range c.events {
		//nolint
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.WithError(err).WithField("client", c.id).Debug("feed write failed")
			f.removeClient(c)
			break
		}
	}
	//nolint
	c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}

// readLoop only detects disconnections, clients are not expected to send
// anything.
func (f *EventFeed) readLoop(c *feedClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			f.removeClient(c)
			return
		}
	}
}

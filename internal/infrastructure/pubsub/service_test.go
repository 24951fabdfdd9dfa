package pubsub_test

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/pubsub"
)

var (
	testTopic   = application.TradeCreated.Label()
	testMessage = `{"id":1,"buyer":"@buyer","seller":"@seller","amount":"100","fee":"3","total":"103","status":"open","admin":10}`
)

type receivedRequest struct {
	path    string
	topic   string
	auth    string
	payload string
}

type testWebServer struct {
	*httptest.Server
	lock     sync.Mutex
	requests []receivedRequest
}

func newTestWebServer(t *testing.T) *testWebServer {
	ts := &testWebServer{}
	handleFn := func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Bad method", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Content-Type") == "" {
			http.Error(w, "Missing Content-Type header", http.StatusUnsupportedMediaType)
			return
		}
		defer r.Body.Close()
		payload, _ := io.ReadAll(r.Body)

		ts.lock.Lock()
		ts.requests = append(ts.requests, receivedRequest{
			path:    r.URL.Path,
			topic:   r.Header.Get("X-Escrow-Topic"),
			auth:    r.Header.Get("Authorization"),
			payload: string(payload),
		})
		ts.lock.Unlock()

		if r.URL.Path == "/failing" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/tradecreated", handleFn)
	mux.HandleFunc("/allevents", handleFn)
	mux.HandleFunc("/failing", handleFn)
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testWebServer) received() []receivedRequest {
	ts.lock.Lock()
	defer ts.lock.Unlock()

	return append([]receivedRequest{}, ts.requests...)
}

func TestPubSubService(t *testing.T) {
	server := newTestWebServer(t)
	pubsubSvc := pubsub.NewService(0)

	secrets := []string{randomSecret(), randomSecret(), ""}
	for _, secret := range secrets {
		subID, err := pubsubSvc.Subscribe(
			testTopic, server.URL+"/tradecreated", secret,
		)
		require.NoError(t, err)
		require.NotEmpty(t, subID)
	}
	_, err := pubsubSvc.Subscribe(ports.AnyTopic, server.URL+"/allevents", "")
	require.NoError(t, err)

	subs := pubsubSvc.ListSubscriptionsForTopic(testTopic)
	require.Len(t, subs, len(secrets)+1)
	require.Len(t, pubsubSvc.ListSubscriptionsForTopic(ports.AnyTopic), 1)
	require.Len(t, pubsubSvc.ListSubscriptionsForTopic(ports.UnspecifiedTopic), 4)

	// Should invoke all hooks.
	err = pubsubSvc.Publish(testTopic, testMessage)
	require.NoError(t, err)

	requests := server.received()
	require.Len(t, requests, len(secrets)+1)

	var secured int
	for _, req := range requests {
		require.Equal(t, testMessage, req.payload)
		require.Equal(t, testTopic, req.topic)
		if req.auth == "" {
			continue
		}
		secured++
		require.True(t, strings.HasPrefix(req.auth, "Bearer "))
		require.True(t, verifiesWithAny(strings.TrimPrefix(req.auth, "Bearer "), secrets))
	}
	require.Equal(t, 2, secured)

	// Only the hook for any topic is invoked for other topics.
	err = pubsubSvc.Publish(application.TradeRefunded.Label(), testMessage)
	require.NoError(t, err)
	require.Len(t, server.received(), len(secrets)+2)

	for i, s := range subs {
		err := pubsubSvc.Unsubscribe(s.Topic(), s.Id())
		require.NoError(t, err)

		subs := pubsubSvc.ListSubscriptionsForTopic(testTopic)
		require.Len(t, subs, len(secrets)-i)
	}

	err = pubsubSvc.Unsubscribe(testTopic, "unknown")
	require.ErrorIs(t, err, pubsub.ErrSubscriptionNotFound)

	// Checks that it's all ok if there are no hooks to invoke.
	err = pubsubSvc.Publish(testTopic, testMessage)
	require.NoError(t, err)
}

func TestFailingPubSubService(t *testing.T) {
	server := newTestWebServer(t)
	pubsubSvc := pubsub.NewService(0)

	t.Run("invalid_subscription", func(t *testing.T) {
		_, err := pubsubSvc.Subscribe("TRADE_SETTLED", server.URL, "")
		require.ErrorIs(t, err, pubsub.ErrUnknownTopic)

		_, err = pubsubSvc.Subscribe(testTopic, "not an url", "")
		require.Error(t, err)

		_, err = pubsubSvc.Subscribe("", server.URL, "")
		require.Error(t, err)
	})

	t.Run("failing_endpoint", func(t *testing.T) {
		_, err := pubsubSvc.Subscribe(testTopic, server.URL+"/failing", "")
		require.NoError(t, err)

		err = pubsubSvc.Publish(testTopic, testMessage)
		require.ErrorIs(t, err, pubsub.ErrDeliveryRejected)
		require.Contains(t, err.Error(), "500")
		require.Contains(t, err.Error(), "boom")
	})
}

type recordingPublisher struct {
	lock   sync.Mutex
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(topic, _ string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.topics = append(p.topics, topic)
	return p.err
}

func TestMultiPublisher(t *testing.T) {
	first, second := &recordingPublisher{}, &recordingPublisher{}
	publisher := pubsub.NewMultiPublisher(first, nil, second)

	require.NoError(t, publisher.Publish(testTopic, testMessage))
	require.Equal(t, []string{testTopic}, first.topics)
	require.Equal(t, []string{testTopic}, second.topics)

	second.err = errors.New("unreachable")
	err := publisher.Publish(testTopic, testMessage)
	require.ErrorIs(t, err, second.err)
	// A failing publisher does not prevent the others from being notified.
	require.Len(t, first.topics, 2)
}

func verifiesWithAny(tokenString string, secrets []string) bool {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		token, err := jwt.ParseWithClaims(
			tokenString, &jwt.StandardClaims{},
			func(token *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			},
		)
		if err != nil || !token.Valid {
			continue
		}
		claims := token.Claims.(*jwt.StandardClaims)
		return claims.Subject == testTopic
	}
	return false
}

func randomSecret() string {
	b := make([]byte, 32)
	//nolint
	rand.Read(b)
	return hex.EncodeToString(b)
}

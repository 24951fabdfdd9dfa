package pubsub

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	topicHeader = "X-Escrow-Topic"

	// Only the head of the body of a rejected notification ends up in the
	// returned error.
	maxErrorBodySize = 512
)

// webhookClient delivers ledger events to the subscribed endpoints.
type webhookClient struct {
	http *http.Client
}

func newWebhookClient(requestTimeout time.Duration) *webhookClient {
	return &webhookClient{&http.Client{Timeout: requestTimeout}}
}

// notify posts the JSON payload to the subscription endpoint, along with the
// topic header and, for secured subscriptions, a bearer token signed with the
// subscription secret. Any 2xx status is a successful delivery.
func (c *webhookClient) notify(sub Subscription, topic, payload string) error {
	req, err := http.NewRequest(
		http.MethodPost, sub.Endpoint, strings.NewReader(payload),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(topicHeader, topic)

	if sub.IsSecured() {
		token, err := signToken(sub.Secret, topic)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		//nolint
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return fmt.Errorf(
		"%w: %s replied with status %d: %s",
		ErrDeliveryRejected, sub.Endpoint, resp.StatusCode,
		strings.TrimSpace(string(body)),
	)
}

// signToken returns a short lived HS256 token whose subject is the topic of
// the notified event.
func signToken(secret, topic string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   topic,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(tokenValidity).Unix(),
	})
	return token.SignedString([]byte(secret))
}

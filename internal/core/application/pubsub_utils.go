package application

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// publishTradeTopic helper to publish the given trade on the pubsub service.
// Failures are only logged, delivery is best effort.
func publishTradeTopic(
	pubsub ports.Publisher, topic Topic, trade *domain.Trade,
) {
	if pubsub == nil {
		return
	}

	message, _ := json.Marshal(trade)
	publish(pubsub, topic, string(message))
}

func publishAdminTopic(
	pubsub ports.Publisher, topic Topic, requester, target int64,
) {
	if pubsub == nil {
		return
	}

	payload := map[string]interface{}{
		"requester": requester,
	}
	if topic != AdminsCleared {
		payload["admin_id"] = target
	}
	message, _ := json.Marshal(payload)
	publish(pubsub, topic, string(message))
}

func publish(pubsub ports.Publisher, topic Topic, message string) {
	if err := pubsub.Publish(topic.Label(), message); err != nil {
		log.WithError(err).Warnf(
			"an error occured while publishing message for topic %s",
			topic.Label(),
		)
	}
}

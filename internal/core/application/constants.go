package application

// Topics to be published
const (
	TradeCreated Topic = iota
	TradeCompleted
	TradeRefunded
	AdminAdded
	AdminRemoved
	AdminsCleared
)

var (
	topicToString = map[Topic]string{
		TradeCreated:   "TRADE_CREATED",
		TradeCompleted: "TRADE_COMPLETED",
		TradeRefunded:  "TRADE_REFUNDED",
		AdminAdded:     "ADMIN_ADDED",
		AdminRemoved:   "ADMIN_REMOVED",
		AdminsCleared:  "ADMINS_CLEARED",
	}
	stringToTopic = map[string]Topic{
		"TRADE_CREATED":   TradeCreated,
		"TRADE_COMPLETED": TradeCompleted,
		"TRADE_REFUNDED":  TradeRefunded,
		"ADMIN_ADDED":     AdminAdded,
		"ADMIN_REMOVED":   AdminRemoved,
		"ADMINS_CLEARED":  AdminsCleared,
	}
)

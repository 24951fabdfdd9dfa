package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRequest is what an admin submits to open a trade. The fee, if
// requested, is the one configured for the service.
type TradeRequest struct {
	Buyer           string
	Seller          string
	Amount          decimal.Decimal
	WithFee         bool
	ChatID          int64
	OriginMessageID int
}

// AdminList lists the privileged users.
type AdminList struct {
	Owners []int64
	Admins []int64
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

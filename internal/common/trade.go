package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade accounts for a single execution between a resting maker order
// and the incoming taker order that removed it. Immutable once emitted.
type Trade struct {
	TradeID       string          `json:"trade_id"`
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	AggressorSide Side            `json:"aggressor_side"`
	MakerOrderID  string          `json:"maker_order_id"`
	TakerOrderID  string          `json:"taker_order_id"`
	MakerFee      decimal.Decimal `json:"maker_fee"`
	TakerFee      decimal.Decimal `json:"taker_fee"`
	Timestamp     time.Time       `json:"timestamp"`
}

func (t Trade) String() string {
	return fmt.Sprintf("Trade(%.8s %s %s@%s aggressor=%s)",
		t.TradeID,
		t.Symbol,
		t.Quantity,
		t.Price,
		t.AggressorSide,
	)
}

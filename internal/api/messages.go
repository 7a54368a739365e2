package api

import (
	"time"

	"github.com/shopspring/decimal"

	"gungnir/internal/common"
	"gungnir/internal/engine"
)

// OrderRequest is the inbound submit-order payload. Price is a pointer so
// a market order can legitimately omit it.
type OrderRequest struct {
	Symbol    string   `json:"symbol"`
	OrderType string   `json:"order_type"`
	Side      string   `json:"side"`
	Quantity  float64  `json:"quantity"`
	Price     *float64 `json:"price,omitempty"`
}

// StopOrderRequest adds the conditional trigger fields.
type StopOrderRequest struct {
	OrderRequest
	TriggerPrice float64 `json:"trigger_price"`
	TriggerType  string  `json:"trigger_type"`
}

type OrderResponse struct {
	OrderID string `json:"order_id"`
	Trades  int    `json:"trades"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

type CancelRequest struct {
	Symbol  string `json:"symbol"`
	OrderID string `json:"order_id"`
}

type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// L2Snapshot is one market-data message: the top levels of both sides as
// [price, quantity] pairs in priority order.
type L2Snapshot struct {
	Type      string       `json:"type,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Symbol    string       `json:"symbol"`
	Bids      [][2]float64 `json:"bids"`
	Asks      [][2]float64 `json:"asks"`
}

type BBOResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Bid       *float64  `json:"bid"`
	Ask       *float64  `json:"ask"`
}

type TradesResponse struct {
	Symbol string         `json:"symbol"`
	Trades []common.Trade `json:"trades"`
}

type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	TotalTrades int       `json:"total_trades"`
}

type Heartbeat struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// order converts an inbound request to the engine's order form,
// validating the string enums.
func (req OrderRequest) order() (*common.Order, error) {
	side, err := common.ParseSide(req.Side)
	if err != nil {
		return nil, err
	}
	orderType, err := common.ParseOrderType(req.OrderType)
	if err != nil {
		return nil, err
	}
	order := &common.Order{
		Symbol:    req.Symbol,
		Side:      side,
		OrderType: orderType,
		Quantity:  decimal.NewFromFloat(req.Quantity),
	}
	if req.Price != nil {
		order.LimitPrice = decimal.NewFromFloat(*req.Price)
	}
	return order, nil
}

// order lifts the trigger fields on top of the underlying order.
func (req StopOrderRequest) order() (*common.Order, error) {
	order, err := req.OrderRequest.order()
	if err != nil {
		return nil, err
	}
	triggerType, err := common.ParseTriggerType(req.TriggerType)
	if err != nil {
		return nil, err
	}
	order.TriggerType = triggerType
	order.TriggerPrice = decimal.NewFromFloat(req.TriggerPrice)
	return order, nil
}

func depthPairs(entries []engine.DepthEntry) [][2]float64 {
	out := make([][2]float64, 0, len(entries))
	for _, entry := range entries {
		out = append(out, [2]float64{entry.Price.InexactFloat64(), entry.Quantity.InexactFloat64()})
	}
	return out
}

func floatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

package common

import "fmt"

type Side int

const (
	Buy Side = iota
	Sell
)

// Opposite returns the side liquidity is consumed from.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "unknown"
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	parsed, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseSide(s string) (Side, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return 0, fmt.Errorf("invalid side %q", s)
}

type OrderType int

const (
	// Limit orders are an order to buy or sell at a specified price or
	// better. Limit orders may rest on the order book until filled.
	LimitOrder OrderType = iota
	// Market orders are instructions to buy or sell immediately at the
	// best available price. Residual quantity is never rested.
	MarketOrder
	// IOC orders match like a limit order but any residual quantity is
	// discarded rather than rested.
	IOCOrder
	// FOK orders either fill completely or are rejected with no effect
	// on the book.
	FOKOrder
)

func (ot OrderType) String() string {
	switch ot {
	case LimitOrder:
		return "limit"
	case MarketOrder:
		return "market"
	case IOCOrder:
		return "ioc"
	case FOKOrder:
		return "fok"
	}
	return "unknown"
}

func (ot OrderType) MarshalText() ([]byte, error) {
	return []byte(ot.String()), nil
}

func (ot *OrderType) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderType(string(text))
	if err != nil {
		return err
	}
	*ot = parsed
	return nil
}

func ParseOrderType(s string) (OrderType, error) {
	switch s {
	case "limit":
		return LimitOrder, nil
	case "market":
		return MarketOrder, nil
	case "ioc":
		return IOCOrder, nil
	case "fok":
		return FOKOrder, nil
	}
	return 0, fmt.Errorf("invalid order type %q", s)
}

// TriggerType selects the BBO predicate a conditional order is armed with.
// The zero value means the order is not conditional.
type TriggerType int

const (
	NoTrigger TriggerType = iota
	StopLoss
	TakeProfit
	StopLimit
)

func (tt TriggerType) String() string {
	switch tt {
	case NoTrigger:
		return ""
	case StopLoss:
		return "stop_loss"
	case TakeProfit:
		return "take_profit"
	case StopLimit:
		return "stop_limit"
	}
	return "unknown"
}

func (tt TriggerType) MarshalText() ([]byte, error) {
	return []byte(tt.String()), nil
}

func (tt *TriggerType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*tt = NoTrigger
		return nil
	}
	parsed, err := ParseTriggerType(string(text))
	if err != nil {
		return err
	}
	*tt = parsed
	return nil
}

func ParseTriggerType(s string) (TriggerType, error) {
	switch s {
	case "stop_loss":
		return StopLoss, nil
	case "take_profit":
		return TakeProfit, nil
	case "stop_limit":
		return StopLimit, nil
	}
	return 0, fmt.Errorf("invalid trigger type %q", s)
}

type OrderStatus int

const (
	StatusNew OrderStatus = iota
	StatusPartial
	StatusFilled
	StatusCancelled
	StatusRejected
	// StatusQueued marks a conditional order waiting on its trigger.
	StatusQueued
)

func (st OrderStatus) String() string {
	switch st {
	case StatusNew:
		return "new"
	case StatusPartial:
		return "partial"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	case StatusRejected:
		return "rejected"
	case StatusQueued:
		return "queued"
	}
	return "unknown"
}

func (st OrderStatus) MarshalText() ([]byte, error) {
	return []byte(st.String()), nil
}

func (st *OrderStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "new":
		*st = StatusNew
	case "partial":
		*st = StatusPartial
	case "filled":
		*st = StatusFilled
	case "cancelled":
		*st = StatusCancelled
	case "rejected":
		*st = StatusRejected
	case "queued":
		*st = StatusQueued
	default:
		return fmt.Errorf("invalid order status %q", text)
	}
	return nil
}

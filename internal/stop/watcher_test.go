package stop

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gungnir/internal/common"
	"gungnir/internal/engine"
	"gungnir/internal/trades"
)

const testSymbol = "BTC-USDT"

func newTestSetup(t *testing.T) (*engine.Engine, *Watcher) {
	t.Helper()
	recorder, err := trades.Open("", 0.0005, 0.001, 1000)
	require.NoError(t, err)
	eng := engine.New(recorder, 2, 10)
	return eng, NewWatcher(eng, 500*time.Millisecond)
}

func stopOrder(side common.Side, orderType common.OrderType, triggerType common.TriggerType, trigger, price, qty float64) *common.Order {
	order := &common.Order{
		Symbol:       testSymbol,
		Side:         side,
		OrderType:    orderType,
		TriggerType:  triggerType,
		TriggerPrice: decimal.NewFromFloat(trigger),
		Quantity:     decimal.NewFromFloat(qty),
	}
	if price > 0 {
		order.LimitPrice = decimal.NewFromFloat(price)
	}
	return order
}

func rest(t *testing.T, eng *engine.Engine, side common.Side, price, qty float64) {
	t.Helper()
	_, err := eng.Process(&common.Order{
		Symbol:     testSymbol,
		Side:       side,
		OrderType:  common.LimitOrder,
		LimitPrice: decimal.NewFromFloat(price),
		Quantity:   decimal.NewFromFloat(qty),
	})
	require.NoError(t, err)
}

func TestAddValidation(t *testing.T) {
	_, w := newTestSetup(t)

	// Missing trigger fields.
	err := w.Add(&common.Order{
		Symbol:    testSymbol,
		Side:      common.Sell,
		OrderType: common.MarketOrder,
		Quantity:  decimal.NewFromFloat(1),
	})
	assert.ErrorIs(t, err, ErrMissingTrigger)

	// Conditional ioc/fok are not a thing.
	err = w.Add(stopOrder(common.Sell, common.IOCOrder, common.StopLoss, 99, 99, 1))
	assert.ErrorIs(t, err, ErrBadUnderlying)

	// Stop-limit without a limit price.
	err = w.Add(stopOrder(common.Sell, common.LimitOrder, common.StopLimit, 99, 0, 1))
	assert.ErrorIs(t, err, engine.ErrMissingPrice)
}

func TestAddQueues(t *testing.T) {
	_, w := newTestSetup(t)

	order := stopOrder(common.Sell, common.MarketOrder, common.StopLoss, 99.00, 0, 1)
	require.NoError(t, w.Add(order))
	assert.Equal(t, common.StatusQueued, order.Status)
	assert.NotEmpty(t, order.UUID)

	pending := w.Pending(testSymbol)
	require.Len(t, pending, 1)
	assert.Equal(t, order.UUID, pending[0].UUID)
}

func TestStopLossPromotion(t *testing.T) {
	eng, w := newTestSetup(t)

	// Book has a bid at 98.50; a sell stop-loss with trigger 99.00 fires
	// because bid <= trigger, and the promoted market sell consumes it.
	rest(t, eng, common.Buy, 98.50, 1.0)

	order := stopOrder(common.Sell, common.MarketOrder, common.StopLoss, 99.00, 0, 1)
	require.NoError(t, w.Add(order))
	queuedID := order.UUID

	w.sweep()

	assert.Empty(t, w.Pending(testSymbol))
	assert.NotEqual(t, queuedID, order.UUID, "promotion must retire the queued id")
	assert.Equal(t, common.NoTrigger, order.TriggerType)
	assert.Equal(t, common.StatusFilled, order.Status)

	bbo := eng.BBO(testSymbol)
	assert.Nil(t, bbo.Bid, "the 98.50 bid was consumed by the promoted market sell")
}

func TestTriggerNotMetStaysPending(t *testing.T) {
	eng, w := newTestSetup(t)

	rest(t, eng, common.Buy, 99.50, 1.0)

	// bid 99.50 > trigger 99.00: a sell stop-loss must not fire.
	order := stopOrder(common.Sell, common.MarketOrder, common.StopLoss, 99.00, 0, 1)
	require.NoError(t, w.Add(order))

	w.sweep()
	assert.Len(t, w.Pending(testSymbol), 1)
}

func TestNoBBOMeansNoTrigger(t *testing.T) {
	_, w := newTestSetup(t)

	order := stopOrder(common.Sell, common.MarketOrder, common.StopLoss, 99.00, 0, 1)
	require.NoError(t, w.Add(order))

	w.sweep()
	assert.Len(t, w.Pending(testSymbol), 1, "an empty book can trigger nothing")
}

func TestStopLimitPromotesAsLimit(t *testing.T) {
	eng, w := newTestSetup(t)

	rest(t, eng, common.Sell, 101.00, 1.0)

	// Buy stop-limit: ask 101 >= trigger 100.50 fires; the promoted limit
	// buy at 100.00 cannot cross 101 so it rests.
	order := stopOrder(common.Buy, common.LimitOrder, common.StopLimit, 100.50, 100.00, 1)
	require.NoError(t, w.Add(order))

	w.sweep()

	assert.Empty(t, w.Pending(testSymbol))
	resting, ok := eng.OrderStatus(testSymbol, order.UUID)
	require.True(t, ok)
	assert.Equal(t, common.LimitOrder, resting.OrderType)
	assert.Equal(t, "100", resting.LimitPrice.String())
}

func TestCancelPending(t *testing.T) {
	_, w := newTestSetup(t)

	order := stopOrder(common.Sell, common.MarketOrder, common.StopLoss, 99.00, 0, 1)
	require.NoError(t, w.Add(order))

	assert.True(t, w.Cancel(testSymbol, order.UUID))
	assert.Empty(t, w.Pending(testSymbol))
	assert.Equal(t, common.StatusCancelled, order.Status)

	assert.False(t, w.Cancel(testSymbol, order.UUID))
}

func TestTriggerTable(t *testing.T) {
	price := func(f float64) *decimal.Decimal {
		d := decimal.NewFromFloat(f)
		return &d
	}

	cases := []struct {
		name        string
		side        common.Side
		triggerType common.TriggerType
		trigger     float64
		bbo         engine.BBO
		want        bool
	}{
		{"stop_loss buy fires on ask >= trigger", common.Buy, common.StopLoss, 100, engine.BBO{Ask: price(100)}, true},
		{"stop_loss buy holds below trigger", common.Buy, common.StopLoss, 100, engine.BBO{Ask: price(99.99)}, false},
		{"stop_loss sell fires on bid <= trigger", common.Sell, common.StopLoss, 100, engine.BBO{Bid: price(99)}, true},
		{"stop_loss sell holds above trigger", common.Sell, common.StopLoss, 100, engine.BBO{Bid: price(100.01)}, false},
		{"take_profit buy fires on ask <= trigger", common.Buy, common.TakeProfit, 100, engine.BBO{Ask: price(99)}, true},
		{"take_profit buy holds above trigger", common.Buy, common.TakeProfit, 100, engine.BBO{Ask: price(101)}, false},
		{"take_profit sell fires on bid >= trigger", common.Sell, common.TakeProfit, 100, engine.BBO{Bid: price(100)}, true},
		{"take_profit sell holds below trigger", common.Sell, common.TakeProfit, 100, engine.BBO{Bid: price(99)}, false},
		{"stop_limit buy fires on ask >= trigger", common.Buy, common.StopLimit, 100, engine.BBO{Ask: price(100.5)}, true},
		{"stop_limit sell fires on bid <= trigger", common.Sell, common.StopLimit, 100, engine.BBO{Bid: price(99.5)}, true},
		{"missing side of book never fires", common.Buy, common.StopLoss, 100, engine.BBO{Bid: price(101)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := stopOrder(tc.side, common.MarketOrder, tc.triggerType, tc.trigger, 0, 1)
			assert.Equal(t, tc.want, shouldTrigger(order, tc.bbo))
		})
	}
}

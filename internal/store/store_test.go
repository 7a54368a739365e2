package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gungnir/internal/common"
	"gungnir/internal/engine"
	"gungnir/internal/trades"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	recorder, err := trades.Open("", 0.0005, 0.001, 1000)
	require.NoError(t, err)
	return engine.New(recorder, 2, 10)
}

func rest(t *testing.T, eng *engine.Engine, symbol string, side common.Side, price, qty float64) *common.Order {
	t.Helper()
	order := &common.Order{
		Symbol:     symbol,
		Side:       side,
		OrderType:  common.LimitOrder,
		LimitPrice: decimal.NewFromFloat(price),
		Quantity:   decimal.NewFromFloat(qty),
	}
	_, err := eng.Process(order)
	require.NoError(t, err)
	return order
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)

	eng := newTestEngine(t)
	buy := rest(t, eng, "BTC-USDT", common.Buy, 99.00, 1.5)
	sell := rest(t, eng, "BTC-USDT", common.Sell, 101.00, 2.5)
	rest(t, eng, "ETH-USDT", common.Buy, 2000.00, 3.0)

	st.SaveBooks(eng)
	assert.FileExists(t, filepath.Join(dir, "BTC-USDT.json"))
	assert.FileExists(t, filepath.Join(dir, "ETH-USDT.json"))

	restored := newTestEngine(t)
	st.LoadBooks(restored)

	bids, asks := restored.Depth("BTC-USDT", 0)
	require.Len(t, bids, 1)
	require.Len(t, asks, 1)
	assert.Equal(t, "99", bids[0].Price.String())
	assert.Equal(t, "1.5", bids[0].Quantity.String())
	assert.Equal(t, "101", asks[0].Price.String())
	assert.Equal(t, "2.5", asks[0].Quantity.String())

	// Identifiers survive the round trip.
	_, ok := restored.OrderStatus("BTC-USDT", buy.UUID)
	assert.True(t, ok)
	_, ok = restored.OrderStatus("BTC-USDT", sell.UUID)
	assert.True(t, ok)
}

func TestLoadSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)

	eng := newTestEngine(t)
	rest(t, eng, "BTC-USDT", common.Buy, 99.00, 1.0)
	st.SaveBooks(eng)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ETH-USDT.json"), []byte("{not json"), 0o644))

	restored := newTestEngine(t)
	st.LoadBooks(restored)

	bids, _ := restored.Depth("BTC-USDT", 0)
	assert.Len(t, bids, 1, "good files must load despite a corrupt sibling")
	ethBids, ethAsks := restored.Depth("ETH-USDT", 0)
	assert.Empty(t, ethBids)
	assert.Empty(t, ethAsks)
}

func TestPartialFillsPersistRemaining(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)

	eng := newTestEngine(t)
	rest(t, eng, "BTC-USDT", common.Sell, 100.00, 3.0)
	taker := &common.Order{
		Symbol:     "BTC-USDT",
		Side:       common.Buy,
		OrderType:  common.IOCOrder,
		LimitPrice: decimal.NewFromFloat(100.00),
		Quantity:   decimal.NewFromFloat(1.0),
	}
	_, err = eng.Process(taker)
	require.NoError(t, err)

	st.SaveBooks(eng)
	restored := newTestEngine(t)
	st.LoadBooks(restored)

	_, asks := restored.Depth("BTC-USDT", 0)
	require.Len(t, asks, 1)
	assert.Equal(t, "2", asks[0].Quantity.String(), "only the remaining quantity is persisted")
}

// Snapshot -> restore -> snapshot is a fixed point.
func TestRestartIdempotence(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)

	eng := newTestEngine(t)
	rest(t, eng, "BTC-USDT", common.Buy, 98.00, 1.0)
	rest(t, eng, "BTC-USDT", common.Buy, 99.00, 2.0)
	rest(t, eng, "BTC-USDT", common.Sell, 101.00, 3.0)
	st.SaveBooks(eng)

	first, err := os.ReadFile(filepath.Join(dir, "BTC-USDT.json"))
	require.NoError(t, err)

	restored := newTestEngine(t)
	st.LoadBooks(restored)
	st.SaveBooks(restored)

	second, err := os.ReadFile(filepath.Join(dir, "BTC-USDT.json"))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

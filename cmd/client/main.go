package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Thin command-line client for poking the engine over HTTP.
func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "http://127.0.0.1:8000", "Base URL of the engine")
	action := flag.String("action", "place", "Action to perform: ['place', 'stop', 'cancel', 'book', 'bbo', 'trades']")

	// Order Parameters
	symbol := flag.String("symbol", "BTC-USDT", "Trading pair symbol")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit', 'market', 'ioc' or 'fok'")
	price := flag.Float64("price", 0, "Limit price (omit or 0 for market orders)")
	qtyStr := flag.String("qty", "1", "Quantity or comma-separated list (e.g. 1,2.5,0.1)")

	// Stop Parameters
	triggerPrice := flag.Float64("trigger-price", 0, "Trigger price for stop orders")
	triggerType := flag.String("trigger-type", "stop_loss", "Trigger type: 'stop_loss', 'take_profit' or 'stop_limit'")

	// Cancel Parameters
	orderID := flag.String("uuid", "", "UUID of the order to cancel")

	flag.Parse()

	client := resty.New().
		SetBaseURL(*serverAddr).
		SetTimeout(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	switch strings.ToLower(*action) {
	case "place":
		for _, qty := range parseQuantities(*qtyStr) {
			body := map[string]any{
				"symbol":     *symbol,
				"order_type": *typeStr,
				"side":       *sideStr,
				"quantity":   qty,
			}
			if *price > 0 {
				body["price"] = *price
			}
			post(client, "/submit_order", body)
		}

	case "stop":
		for _, qty := range parseQuantities(*qtyStr) {
			body := map[string]any{
				"symbol":        *symbol,
				"order_type":    *typeStr,
				"side":          *sideStr,
				"quantity":      qty,
				"trigger_price": *triggerPrice,
				"trigger_type":  *triggerType,
			}
			if *price > 0 {
				body["price"] = *price
			}
			post(client, "/submit_stop_order", body)
		}

	case "cancel":
		if *orderID == "" {
			log.Fatal("Error: -uuid is required for cancellation")
		}
		post(client, "/cancel_order", map[string]any{
			"symbol":   *symbol,
			"order_id": *orderID,
		})

	case "book":
		get(client, "/orderbook/"+*symbol)

	case "bbo":
		get(client, "/bbo/"+*symbol)

	case "trades":
		get(client, "/trades/"+*symbol)

	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

func post(client *resty.Client, path string, body any) {
	resp, err := client.R().SetBody(body).Post(path)
	if err != nil {
		log.Fatalf("Request to %s failed: %v", path, err)
	}
	show(path, resp.Body())
}

func get(client *resty.Client, path string) {
	resp, err := client.R().Get(path)
	if err != nil {
		log.Fatalf("Request to %s failed: %v", path, err)
	}
	show(path, resp.Body())
}

func show(path string, body []byte) {
	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Printf("-> %s: %s\n", path, body)
		return
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Printf("-> %s:\n%s\n", path, out)
}

// parseQuantities splits a comma-separated string into a slice of float64
func parseQuantities(input string) []float64 {
	parts := strings.Split(input, ",")
	var result []float64
	for _, p := range parts {
		q, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || q <= 0 {
			fmt.Printf("Skipping invalid quantity: %s\n", p)
			continue
		}
		result = append(result, q)
	}
	if len(result) == 0 {
		os.Exit(1)
	}
	return result
}

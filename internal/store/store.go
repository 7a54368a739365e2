// Package store is the persistence sidecar: on shutdown it writes each
// symbol's resting orders to a JSON file, and on startup it replays every
// file back through the matching engine. Writes use atomic file
// replacement (write to .tmp, then rename) so a crash mid-save never
// leaves a partial file. Conditional orders are not persisted.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"gungnir/internal/common"
)

// Engine is the slice of the facade the store needs.
type Engine interface {
	Symbols() []string
	RestingOrders(symbol string) []common.Order
	Process(order *common.Order) ([]common.Trade, error)
}

type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates a store backed by the given directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// SaveBooks snapshots every symbol's live orders. Failures on one symbol
// are logged and do not stop the remaining symbols from being saved.
func (s *Store) SaveBooks(eng Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, symbol := range eng.Symbols() {
		orders := eng.RestingOrders(symbol)
		if err := s.saveSymbol(symbol, orders); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("unable to save order book state")
			continue
		}
		log.Info().Str("symbol", symbol).Int("orders", len(orders)).Msg("order book state saved")
	}
}

func (s *Store) saveSymbol(symbol string, orders []common.Order) error {
	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal orders: %w", err)
	}
	path := filepath.Join(s.dir, symbol+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write orders: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadBooks replays every saved symbol file through the engine in file
// order. Corrupt files are skipped with a warning; a missing directory is
// a fresh start, not an error.
func (s *Store) LoadBooks(eng Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", s.dir).Msg("unable to read order book state dir")
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		symbol := strings.TrimSuffix(name, ".json")
		if err := s.loadSymbol(eng, name); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("skipping corrupted order book state file")
		}
	}
}

func (s *Store) loadSymbol(eng Engine, name string) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("read orders: %w", err)
	}

	var orders []common.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return fmt.Errorf("unmarshal orders: %w", err)
	}

	restored := 0
	for i := range orders {
		order := orders[i]
		// Replaying through Process re-derives book state instead of
		// trusting the file to be internally consistent.
		if _, err := eng.Process(&order); err != nil {
			log.Warn().
				Err(err).
				Str("uuid", order.UUID).
				Str("symbol", order.Symbol).
				Msg("skipping unrestorable order")
			continue
		}
		restored++
	}
	log.Info().Str("file", name).Int("orders", restored).Msg("order book state restored")
	return nil
}

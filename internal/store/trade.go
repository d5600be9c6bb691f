package store

import (
	"sync"

	"github.com/efreitasn/tradesim/internal/domain"
)

// TradeStore is a thread-safe in-memory table of trades keyed by trade id.
// It is the single source of truth for trade state.
//
// Each trade carries its own mutex: Update serializes all mutations for one
// trade id (engine steps and cancellation) without a global lock, and readers
// receive deep-copy snapshots so observations never race with an in-flight
// mutation. Trades are never deleted; terminal trades remain queryable.
type TradeStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu    sync.Mutex // per-trade lock; serializes engine steps and cancel
	trade *domain.Trade
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		entries: make(map[string]*entry),
	}
}

// Put inserts a trade. It is used for freshly created trades and for
// pre-rejected trades stored directly by the gateway.
func (s *TradeStore) Put(t *domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[t.ID] = &entry{trade: t}
}

// Get returns a snapshot of the trade. It returns domain.ErrTradeNotFound
// if the trade does not exist.
func (s *TradeStore) Get(id string) (*domain.Trade, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTradeNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trade.Clone(), nil
}

// All returns snapshots of every stored trade in no particular order.
func (s *TradeStore) All() []*domain.Trade {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	trades := make([]*domain.Trade, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		trades = append(trades, e.trade.Clone())
		e.mu.Unlock()
	}
	return trades
}

// Update runs fn on the live trade record under that trade's lock. All
// engine steps and the cancel operation mutate trades exclusively through
// Update, which is what makes a cancellation and a concurrent fill decision
// mutually exclusive. fn must not sleep or wait on another trade.
// It returns domain.ErrTradeNotFound if the trade does not exist.
func (s *TradeStore) Update(id string, fn func(t *domain.Trade)) error {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrTradeNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.trade)
	return nil
}

// Len returns the number of stored trades.
func (s *TradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

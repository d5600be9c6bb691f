package exposure

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Gate tracks per-trader notional exposure against credit limits and admits
// or rejects new trades. The gateway consults it once, before a trade is
// created; the execution engine records confirmed notional against it.
type Gate struct {
	mu           sync.RWMutex
	exposures    map[string]decimal.Decimal
	limits       map[string]decimal.Decimal
	defaultLimit decimal.Decimal
}

// NewGate creates a gate with the given per-trader limits. Traders without
// an explicit limit use defaultLimit.
func NewGate(limits map[string]float64, defaultLimit float64) *Gate {
	g := &Gate{
		exposures:    make(map[string]decimal.Decimal),
		limits:       make(map[string]decimal.Decimal, len(limits)),
		defaultLimit: decimal.NewFromFloat(defaultLimit),
	}
	for trader, limit := range limits {
		g.limits[trader] = decimal.NewFromFloat(limit)
	}
	return g
}

// Exposure returns the trader's current notional exposure.
func (g *Gate) Exposure(trader string) decimal.Decimal {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.exposures[trader] // zero value is decimal zero
}

// Limit returns the trader's credit limit, or the default for unknown traders.
func (g *Gate) Limit(trader string) decimal.Decimal {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if limit, ok := g.limits[trader]; ok {
		return limit
	}
	return g.defaultLimit
}

// Allowed reports whether the trader may take on a trade of the given
// quantity at the given limit price: current exposure plus the requested
// notional must not exceed the trader's limit. Market orders (non-positive
// limit price) carry zero requested notional at admission time.
func (g *Gate) Allowed(trader string, quantity int64, limitPrice float64) bool {
	if limitPrice < 0 {
		limitPrice = 0
	}
	notional := decimal.NewFromInt(quantity).Mul(decimal.NewFromFloat(limitPrice))

	g.mu.RLock()
	defer g.mu.RUnlock()

	limit, ok := g.limits[trader]
	if !ok {
		limit = g.defaultLimit
	}
	return g.exposures[trader].Add(notional).LessThanOrEqual(limit)
}

// Add records notional against the trader's exposure. The engine calls this
// when a trade is confirmed.
func (g *Gate) Add(trader string, notional float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.exposures[trader] = g.exposures[trader].Add(decimal.NewFromFloat(notional))
}

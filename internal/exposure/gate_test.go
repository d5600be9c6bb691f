package exposure

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestGate() *Gate {
	return NewGate(map[string]float64{
		"TRADER1": 1_000_000,
		"TRADER2": 500_000,
	}, 250_000)
}

func TestGate_Allowed_WithinLimit(t *testing.T) {
	g := newTestGate()

	if !g.Allowed("TRADER1", 1000, 100) {
		t.Fatal("expected 100k notional to be allowed under a 1M limit")
	}
}

func TestGate_Allowed_ExceedsLimit(t *testing.T) {
	g := newTestGate()

	if g.Allowed("TRADER2", 10_000, 100) {
		t.Fatal("expected 1M notional to be rejected under a 500k limit")
	}
}

func TestGate_Allowed_AtExactLimit(t *testing.T) {
	g := newTestGate()

	// exposure + notional == limit is allowed.
	if !g.Allowed("TRADER2", 5000, 100) {
		t.Fatal("expected notional exactly at the limit to be allowed")
	}
}

func TestGate_Allowed_DefaultLimitForUnknownTrader(t *testing.T) {
	g := newTestGate()

	if !g.Allowed("NOBODY", 2500, 100) {
		t.Fatal("expected 250k notional to be allowed at the default limit")
	}
	if g.Allowed("NOBODY", 2501, 100) {
		t.Fatal("expected notional above the default limit to be rejected")
	}
}

func TestGate_Allowed_MarketOrderHasNoAdmissionNotional(t *testing.T) {
	g := newTestGate()
	g.Add("TRADER2", 500_000)

	// Limit price <= 0 means market price: nothing to reserve at admission,
	// even for a maxed-out trader.
	if !g.Allowed("TRADER2", 1000, 0) {
		t.Fatal("expected a market order to be admitted")
	}
	if !g.Allowed("TRADER2", 1000, -1) {
		t.Fatal("expected a forced-partial market order to be admitted")
	}
}

func TestGate_Add_RaisesExposure(t *testing.T) {
	g := newTestGate()

	g.Add("TRADER2", 400_000)

	if !g.Exposure("TRADER2").Equal(decimal.NewFromInt(400_000)) {
		t.Fatalf("expected exposure 400000, got %s", g.Exposure("TRADER2"))
	}
	// 400k used of 500k: another 200k must be rejected, 100k allowed.
	if g.Allowed("TRADER2", 2000, 100) {
		t.Fatal("expected 200k notional to breach the remaining headroom")
	}
	if !g.Allowed("TRADER2", 1000, 100) {
		t.Fatal("expected 100k notional to fit the remaining headroom")
	}
}

func TestGate_Limit(t *testing.T) {
	g := newTestGate()

	if !g.Limit("TRADER1").Equal(decimal.NewFromInt(1_000_000)) {
		t.Fatalf("expected limit 1000000, got %s", g.Limit("TRADER1"))
	}
	if !g.Limit("NOBODY").Equal(decimal.NewFromInt(250_000)) {
		t.Fatalf("expected default limit 250000, got %s", g.Limit("NOBODY"))
	}
}

func TestGate_ConcurrentAdd(t *testing.T) {
	g := newTestGate()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Add("TRADER1", 10)
		}()
	}
	wg.Wait()

	if !g.Exposure("TRADER1").Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected exposure 1000, got %s", g.Exposure("TRADER1"))
	}
}

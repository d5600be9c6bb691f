package domain

import (
	"strings"
	"sync"
)

// Instrument describes a tradable security identified by an ISIN-like code.
type Instrument struct {
	ISIN     string
	Currency string
	Yield    float64
	Tenor    string
}

// InstrumentRegistry tracks the known instrument universe in a thread-safe
// manner. Creation requests referencing an unknown ISIN are rejected at the
// gateway before a trade is created.
type InstrumentRegistry struct {
	mu          sync.RWMutex
	instruments map[string]Instrument
}

// NewInstrumentRegistry creates a registry seeded with the given ISINs.
// Currency is derived from the country prefix; unknown prefixes default
// to USD.
func NewInstrumentRegistry(isins []string) *InstrumentRegistry {
	r := &InstrumentRegistry{
		instruments: make(map[string]Instrument, len(isins)),
	}
	tenors := []string{"1Y", "2Y", "5Y", "10Y"}
	for i, isin := range isins {
		r.instruments[isin] = Instrument{
			ISIN:     isin,
			Currency: currencyFor(isin),
			Yield:    0.5 + float64(i%8),
			Tenor:    tenors[i%len(tenors)],
		}
	}
	return r
}

// Register adds an instrument to the registry. Safe for concurrent use.
func (r *InstrumentRegistry) Register(inst Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instruments[inst.ISIN] = inst
}

// Get returns the instrument for the given ISIN. It returns
// ErrInstrumentNotFound if the ISIN is unknown.
func (r *InstrumentRegistry) Get(isin string) (Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instruments[isin]
	if !ok {
		return Instrument{}, ErrInstrumentNotFound
	}
	return inst, nil
}

// Exists returns true if the ISIN has been registered. Safe for concurrent use.
func (r *InstrumentRegistry) Exists(isin string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.instruments[isin]
	return ok
}

// ISINs returns the registered ISINs in no particular order.
func (r *InstrumentRegistry) ISINs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.instruments))
	for isin := range r.instruments {
		out = append(out, isin)
	}
	return out
}

func currencyFor(isin string) string {
	switch {
	case strings.HasPrefix(isin, "GB"):
		return "GBP"
	case strings.HasPrefix(isin, "JP"):
		return "JPY"
	case strings.HasPrefix(isin, "DE"):
		return "EUR"
	case strings.HasPrefix(isin, "IN"):
		return "INR"
	default:
		return "USD"
	}
}

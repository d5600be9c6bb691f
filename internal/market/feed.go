package market

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/efreitasn/tradesim/internal/domain"
)

// DefaultPrice is the synthetic price returned for instruments the feed
// has never published a tick for.
const DefaultPrice = 100.0

// subscriberBuffer is the per-subscriber channel capacity. Ticks for slow
// subscribers are dropped rather than blocking the feed.
const subscriberBuffer = 16

// Feed simulates a market data vendor. It publishes a new tick for every
// instrument in its universe at a fixed interval, moving each price by a
// small bounded random step, keeps a rolling window of recent prices per
// instrument for averages, and fans ticks out to subscribers.
type Feed struct {
	interval time.Duration
	window   int

	mu     sync.RWMutex
	latest map[string]domain.MarketTick
	recent map[string][]float64 // last `window` prices, oldest first

	subMu sync.Mutex
	subs  map[chan domain.MarketTick]struct{}

	rnd *rand.Rand // accessed only from the tick goroutine after Start
}

// NewFeed creates a feed for the given instrument universe. Initial prices
// are drawn uniformly from [80, 120).
func NewFeed(isins []string, interval time.Duration, window int, seed int64) *Feed {
	f := &Feed{
		interval: interval,
		window:   window,
		latest:   make(map[string]domain.MarketTick, len(isins)),
		recent:   make(map[string][]float64, len(isins)),
		subs:     make(map[chan domain.MarketTick]struct{}),
		rnd:      rand.New(rand.NewSource(seed)),
	}
	now := time.Now().UnixMilli()
	for _, isin := range isins {
		price := 80 + f.rnd.Float64()*40
		f.record(domain.MarketTick{ISIN: isin, Price: price, Timestamp: now})
	}
	return f
}

// Start launches a background goroutine that publishes new ticks at the
// configured interval. It stops when ctx is cancelled.
func (f *Feed) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.tick()
			}
		}
	}()
}

// tick advances every instrument's price by a bounded random-walk step
// (at most ±1% per tick, floored at 1.0) and publishes the new ticks.
func (f *Feed) tick() {
	now := time.Now().UnixMilli()

	f.mu.Lock()
	published := make([]domain.MarketTick, 0, len(f.latest))
	for isin, last := range f.latest {
		step := last.Price * (f.rnd.Float64()*0.02 - 0.01)
		price := last.Price + step
		if price < 1 {
			price = 1
		}
		t := domain.MarketTick{ISIN: isin, Price: price, Timestamp: now}
		f.recordLocked(t)
		published = append(published, t)
	}
	f.mu.Unlock()

	for _, t := range published {
		f.broadcast(t)
	}
}

// record stores a tick as the latest for its instrument and appends its
// price to the rolling window.
func (f *Feed) record(t domain.MarketTick) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordLocked(t)
}

func (f *Feed) recordLocked(t domain.MarketTick) {
	f.latest[t.ISIN] = t
	prices := append(f.recent[t.ISIN], t.Price)
	if len(prices) > f.window {
		prices = prices[len(prices)-f.window:]
	}
	f.recent[t.ISIN] = prices
}

// Latest returns the most recent tick for the instrument. Unknown
// instruments get a synthetic default tick; this call never errors.
func (f *Feed) Latest(isin string) domain.MarketTick {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if t, ok := f.latest[isin]; ok {
		return t
	}
	return domain.MarketTick{ISIN: isin, Price: DefaultPrice, Timestamp: time.Now().UnixMilli()}
}

// AveragePrice returns the mean of up to `window` most recent prices for the
// instrument. A non-positive window falls back to the feed's configured
// window. It returns -1 when no ticks have been recorded, which callers
// treat as "no data".
func (f *Feed) AveragePrice(isin string, window int) float64 {
	if window <= 0 {
		window = f.window
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	prices := f.recent[isin]
	if len(prices) == 0 {
		return -1
	}
	if len(prices) > window {
		prices = prices[len(prices)-window:]
	}

	var sum float64
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

// Subscribe registers a tick subscriber. The returned channel is buffered;
// ticks are dropped for subscribers that fall behind.
func (f *Feed) Subscribe() chan domain.MarketTick {
	ch := make(chan domain.MarketTick, subscriberBuffer)
	f.subMu.Lock()
	f.subs[ch] = struct{}{}
	f.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (f *Feed) Unsubscribe(ch chan domain.MarketTick) {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
}

func (f *Feed) broadcast(t domain.MarketTick) {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- t:
		default:
		}
	}
}

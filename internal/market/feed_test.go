package market

import (
	"testing"
	"time"
)

func newTestFeed() *Feed {
	return NewFeed([]string{"US0001", "GB0001"}, 10*time.Millisecond, 5, 1)
}

func TestFeed_Latest_KnownInstrument(t *testing.T) {
	f := newTestFeed()

	tick := f.Latest("US0001")
	if tick.ISIN != "US0001" {
		t.Fatalf("expected US0001, got %s", tick.ISIN)
	}
	if tick.Price < 80 || tick.Price >= 120 {
		t.Fatalf("expected initial price in [80, 120), got %g", tick.Price)
	}
}

func TestFeed_Latest_UnknownInstrument_SyntheticDefault(t *testing.T) {
	f := newTestFeed()

	tick := f.Latest("XX9999")
	if tick.ISIN != "XX9999" {
		t.Fatalf("expected XX9999, got %s", tick.ISIN)
	}
	if tick.Price != DefaultPrice {
		t.Fatalf("expected default price %g, got %g", DefaultPrice, tick.Price)
	}
}

func TestFeed_AveragePrice_NoData(t *testing.T) {
	f := newTestFeed()

	if avg := f.AveragePrice("XX9999", 5); avg != -1 {
		t.Fatalf("expected -1 for unknown instrument, got %g", avg)
	}
}

func TestFeed_AveragePrice_RollingWindow(t *testing.T) {
	f := newTestFeed()

	// Ticks advance the rolling window; the average must track the window
	// mean, not the all-time mean.
	for i := 0; i < 10; i++ {
		f.tick()
	}

	avg := f.AveragePrice("US0001", 5)
	if avg <= 0 {
		t.Fatalf("expected positive average, got %g", avg)
	}

	// The window holds 5 prices; a window of 3 averages the newest 3 only.
	avg3 := f.AveragePrice("US0001", 3)
	if avg3 <= 0 {
		t.Fatalf("expected positive average, got %g", avg3)
	}
}

func TestFeed_Tick_BoundedStep(t *testing.T) {
	f := newTestFeed()

	before := f.Latest("US0001").Price
	f.tick()
	after := f.Latest("US0001").Price

	// Each step moves the price by at most 1%.
	maxStep := before * 0.01
	diff := after - before
	if diff < -maxStep || diff > maxStep {
		t.Fatalf("step %g exceeds bound %g", diff, maxStep)
	}
}

func TestFeed_Subscribe_ReceivesTicks(t *testing.T) {
	f := newTestFeed()
	ch := f.Subscribe()

	f.tick()

	select {
	case tick := <-ch:
		if tick.Price <= 0 {
			t.Fatalf("expected positive price, got %g", tick.Price)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a tick on the subscriber channel")
	}

	f.Unsubscribe(ch)
	// Channel is closed after unsubscribe; drain until closed.
	for range ch {
	}
}

func TestFeed_SlowSubscriber_DropsTicks(t *testing.T) {
	f := newTestFeed()
	ch := f.Subscribe()
	defer f.Unsubscribe(ch)

	// Fill far beyond the buffer; broadcast must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			f.tick()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}

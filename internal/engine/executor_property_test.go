package engine

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/efreitasn/tradesim/internal/domain"
	"github.com/efreitasn/tradesim/internal/store"
)

// runScripted drives a single trade to a terminal state with the given
// outcome script and returns its final snapshot.
func runScripted(t *rapid.T, rnd *scriptRand, quantity int64, limitPrice float64) *domain.Trade {
	st := store.NewTradeStore()
	sched := NewScheduler(2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := NewExecutor(st, stubMarket{price: 100, avg: 100}, &recordingSink{}, &recordingGate{}, sched, rnd, testConfig(), logger)

	st.Put(domain.NewTrade("trade-1", "US0001", "TRADER1", quantity, limitPrice))
	exec.Submit("trade-1")

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		tr, err := st.Get("trade-1")
		if err != nil {
			t.Fatalf("trade disappeared: %v", err)
		}
		if tr.State.Terminal() {
			return tr
		}
		time.Sleep(time.Millisecond)
	}
	tr, _ := st.Get("trade-1")
	t.Fatalf("trade never terminal, stuck at %s (history %v)", tr.State, tr.History)
	return nil
}

func TestExecutor_FilledNeverExceedsQuantity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rnd := &scriptRand{
			transient:   rapid.SliceOfN(rapid.Bool(), 0, 10).Draw(t, "transient"),
			partial:     rapid.SliceOfN(rapid.Bool(), 0, 20).Draw(t, "partial"),
			confirmFail: rapid.SliceOfN(rapid.Bool(), 0, 3).Draw(t, "confirmFail"),
		}
		quantity := rapid.Int64Range(1, 500).Draw(t, "quantity")

		tr := runScripted(t, rnd, quantity, 100)

		if tr.Filled < 0 || tr.Filled > quantity {
			t.Fatalf("filled %d out of range [0, %d] (history %v)", tr.Filled, quantity, tr.History)
		}
	})
}

func TestExecutor_FillEventsSumToFilled(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rnd := &scriptRand{
			transient: rapid.SliceOfN(rapid.Bool(), 0, 10).Draw(t, "transient"),
			partial:   rapid.SliceOfN(rapid.Bool(), 0, 20).Draw(t, "partial"),
		}
		quantity := rapid.Int64Range(1, 500).Draw(t, "quantity")

		tr := runScripted(t, rnd, quantity, 100)

		var sum int64
		for _, h := range tr.History {
			for _, prefix := range []string{"PARTIAL_FILL:", "EXECUTED:"} {
				if strings.HasPrefix(h, prefix) {
					qty, err := strconv.ParseInt(strings.TrimPrefix(h, prefix), 10, 64)
					if err != nil {
						t.Fatalf("unparseable fill label %q: %v", h, err)
					}
					sum += qty
				}
			}
		}
		if sum != tr.Filled {
			t.Fatalf("fill events sum to %d but filled is %d (history %v)", sum, tr.Filled, tr.History)
		}
	})
}

func TestExecutor_HistoryStartsCreatedEndsTerminal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rnd := &scriptRand{
			transient:   rapid.SliceOfN(rapid.Bool(), 0, 10).Draw(t, "transient"),
			partial:     rapid.SliceOfN(rapid.Bool(), 0, 20).Draw(t, "partial"),
			confirmFail: rapid.SliceOfN(rapid.Bool(), 0, 3).Draw(t, "confirmFail"),
		}
		quantity := rapid.Int64Range(1, 500).Draw(t, "quantity")

		tr := runScripted(t, rnd, quantity, 100)

		if len(tr.History) == 0 || tr.History[0] != "CREATED" {
			t.Fatalf("history must start with CREATED: %v", tr.History)
		}
		if !tr.State.Terminal() {
			t.Fatalf("expected terminal state, got %s", tr.State)
		}

		// The canonical terminal label must appear, and once terminal the
		// state label matches the trade's final state.
		found := false
		for _, h := range tr.History {
			if h == string(tr.State) {
				found = true
			}
		}
		if !found {
			t.Fatalf("terminal label %s missing from history %v", tr.State, tr.History)
		}
	})
}

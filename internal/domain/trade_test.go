package domain

import "testing"

func TestNewTrade_InitialState(t *testing.T) {
	tr := NewTrade("trade-1", "US0001", "TRADER1", 100, 101.5)

	if tr.State != TradeStateCreated {
		t.Fatalf("expected CREATED, got %s", tr.State)
	}
	if len(tr.History) != 1 || tr.History[0] != "CREATED" {
		t.Fatalf("expected history [CREATED], got %v", tr.History)
	}
	if tr.Filled != 0 {
		t.Fatalf("expected filled 0, got %d", tr.Filled)
	}
	if tr.Remaining() != 100 {
		t.Fatalf("expected remaining 100, got %d", tr.Remaining())
	}
}

func TestTrade_SetState_AppendsCanonicalLabel(t *testing.T) {
	tr := NewTrade("trade-1", "US0001", "TRADER1", 100, -1)

	tr.SetState(TradeStateRetry)
	tr.AddEvent("TRANSIENT_FAILURE")
	tr.SetState(TradeStatePartial)
	tr.AddEvent("PARTIAL_FILL:50")

	want := []string{"CREATED", "RETRY", "TRANSIENT_FAILURE", "PARTIAL", "PARTIAL_FILL:50"}
	if len(tr.History) != len(want) {
		t.Fatalf("expected %d history entries, got %d: %v", len(want), len(tr.History), tr.History)
	}
	for i, label := range want {
		if tr.History[i] != label {
			t.Fatalf("history[%d]: expected %s, got %s", i, label, tr.History[i])
		}
	}
	if tr.State != TradeStatePartial {
		t.Fatalf("expected PARTIAL, got %s", tr.State)
	}
}

func TestTradeState_Terminal(t *testing.T) {
	terminal := []TradeState{TradeStateConfirmed, TradeStateRejected, TradeStateCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	nonTerminal := []TradeState{
		TradeStateCreated, TradeStateRetry, TradeStatePartial,
		TradeStateExecuted, TradeStatePendingConfirmation,
	}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestTrade_Clone_IndependentHistory(t *testing.T) {
	tr := NewTrade("trade-1", "US0001", "TRADER1", 100, 99.0)
	snapshot := tr.Clone()

	tr.SetState(TradeStatePartial)
	tr.AddFilled(25)

	if len(snapshot.History) != 1 {
		t.Fatalf("snapshot history mutated: %v", snapshot.History)
	}
	if snapshot.State != TradeStateCreated {
		t.Fatalf("snapshot state mutated: %s", snapshot.State)
	}
	if snapshot.Filled != 0 {
		t.Fatalf("snapshot filled mutated: %d", snapshot.Filled)
	}
}

func TestInstrumentRegistry(t *testing.T) {
	r := NewInstrumentRegistry([]string{"US0001", "GB0001", "JP0001"})

	if !r.Exists("US0001") {
		t.Fatal("expected US0001 to exist")
	}
	if r.Exists("XX9999") {
		t.Fatal("expected XX9999 to be unknown")
	}

	inst, err := r.Get("GB0001")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if inst.Currency != "GBP" {
		t.Fatalf("expected GBP, got %s", inst.Currency)
	}

	if _, err := r.Get("XX9999"); err != ErrInstrumentNotFound {
		t.Fatalf("expected ErrInstrumentNotFound, got %v", err)
	}

	if len(r.ISINs()) != 3 {
		t.Fatalf("expected 3 ISINs, got %d", len(r.ISINs()))
	}
}

package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/efreitasn/tradesim/internal/domain"
)

func TestTradeStore_Put_and_Get(t *testing.T) {
	s := NewTradeStore()
	s.Put(domain.NewTrade("trade-1", "US0001", "TRADER1", 100, 99.5))

	got, err := s.Get("trade-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != "trade-1" {
		t.Fatalf("expected trade-1, got %s", got.ID)
	}
	if got.State != domain.TradeStateCreated {
		t.Fatalf("expected CREATED, got %s", got.State)
	}
}

func TestTradeStore_Get_NotFound(t *testing.T) {
	s := NewTradeStore()

	_, err := s.Get("no-such-trade")
	if err != domain.ErrTradeNotFound {
		t.Fatalf("expected ErrTradeNotFound, got %v", err)
	}
}

func TestTradeStore_Get_ReturnsSnapshot(t *testing.T) {
	s := NewTradeStore()
	s.Put(domain.NewTrade("trade-1", "US0001", "TRADER1", 100, 99.5))

	before, _ := s.Get("trade-1")

	err := s.Update("trade-1", func(tr *domain.Trade) {
		tr.SetState(domain.TradeStatePartial)
		tr.AddFilled(10)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// The earlier snapshot must be unaffected.
	if before.State != domain.TradeStateCreated {
		t.Fatalf("snapshot state mutated: %s", before.State)
	}
	if len(before.History) != 1 {
		t.Fatalf("snapshot history mutated: %v", before.History)
	}

	after, _ := s.Get("trade-1")
	if after.State != domain.TradeStatePartial {
		t.Fatalf("expected PARTIAL, got %s", after.State)
	}
	if after.Filled != 10 {
		t.Fatalf("expected filled 10, got %d", after.Filled)
	}
}

func TestTradeStore_Update_NotFound(t *testing.T) {
	s := NewTradeStore()

	err := s.Update("no-such-trade", func(tr *domain.Trade) {
		t.Fatal("fn must not be called for a missing trade")
	})
	if err != domain.ErrTradeNotFound {
		t.Fatalf("expected ErrTradeNotFound, got %v", err)
	}
}

func TestTradeStore_All(t *testing.T) {
	s := NewTradeStore()
	for i := 0; i < 5; i++ {
		s.Put(domain.NewTrade(fmt.Sprintf("trade-%d", i), "US0001", "TRADER1", 10, 100))
	}

	all := s.All()
	if len(all) != 5 {
		t.Fatalf("expected 5 trades, got %d", len(all))
	}
	if s.Len() != 5 {
		t.Fatalf("expected Len 5, got %d", s.Len())
	}
}

func TestTradeStore_ConcurrentUpdates_SerializedPerTrade(t *testing.T) {
	s := NewTradeStore()
	s.Put(domain.NewTrade("trade-1", "US0001", "TRADER1", 1000, 100))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update("trade-1", func(tr *domain.Trade) {
				tr.AddFilled(1)
				tr.AddEvent(fmt.Sprintf("PARTIAL_FILL:%d", 1))
			})
		}()
	}
	wg.Wait()

	got, _ := s.Get("trade-1")
	if got.Filled != 100 {
		t.Fatalf("expected filled 100, got %d", got.Filled)
	}
	// CREATED + 100 events.
	if len(got.History) != 101 {
		t.Fatalf("expected 101 history entries, got %d", len(got.History))
	}
}

func TestTradeStore_ConcurrentPutAndRead(t *testing.T) {
	s := NewTradeStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Put(domain.NewTrade(fmt.Sprintf("trade-%d", i), "US0001", "TRADER1", 10, 100))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.All()
		}()
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Fatalf("expected 50 trades, got %d", s.Len())
	}
}

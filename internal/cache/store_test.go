package cache

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestStore(stale time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(stale)
	s.now = clock.now
	return s, clock
}

func TestStoreTTL(t *testing.T) {
	s, clock := newTestStore(0)
	s.Set("a", 1, time.Minute)

	if v, ok := s.Get("a"); !ok || v.(int) != 1 {
		t.Fatalf("expected value before ttl")
	}
	clock.t = clock.t.Add(2 * time.Minute)
	if _, ok := s.Get("a"); ok {
		t.Fatalf("expected value to expire")
	}
	if s.Len() != 0 {
		t.Fatalf("expired entry should be evicted on read")
	}
}

func TestStoreStaleness(t *testing.T) {
	s, clock := newTestStore(24 * time.Hour)
	s.Set("fee", 10.0, 0)

	clock.t = clock.t.Add(23 * time.Hour)
	if _, ok := s.Get("fee"); !ok {
		t.Fatalf("entry should still be fresh")
	}
	clock.t = clock.t.Add(2 * time.Hour)
	if _, ok := s.Get("fee"); ok {
		t.Fatalf("entry should be stale after 24h")
	}
}

func TestDeletePrefix(t *testing.T) {
	s, _ := newTestStore(0)
	s.Set(CourierFeeKey("c1", "2024-01-01"), 5.0, 0)
	s.Set(CourierFeeKey("c1", "2024-01-02"), 6.0, 0)
	s.Set(ModifiedByCourierKey("o1"), true, 0)

	if n := s.DeletePrefix(courierFeePrefix); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", s.Len())
	}
}

func TestCourierFees(t *testing.T) {
	s, _ := newTestStore(0)
	fees := NewCourierFees(s)

	if _, ok := fees.Get("c1", "2024-01-01"); ok {
		t.Fatalf("expected miss")
	}
	fees.Set("c1", "2024-01-01", 150)
	if v, ok := fees.Get("c1", "2024-01-01"); !ok || v != 150 {
		t.Fatalf("expected 150, got %v", v)
	}
	if _, ok := fees.Get("c1", "2024-01-02"); ok {
		t.Fatalf("fees are keyed by date")
	}
}

func TestModifiedOrders(t *testing.T) {
	s, clock := newTestStore(0)
	m := NewModifiedOrders(s, time.Hour)

	m.Mark("o2")
	m.Mark("o1")
	if !m.IsModified("o1") {
		t.Fatalf("expected o1 flagged")
	}
	got := m.List()
	if len(got) != 2 || got[0] != "o1" || got[1] != "o2" {
		t.Fatalf("unexpected list %v", got)
	}

	m.Clear("o1")
	if m.IsModified("o1") {
		t.Fatalf("expected o1 cleared")
	}

	clock.t = clock.t.Add(2 * time.Hour)
	if m.IsModified("o2") {
		t.Fatalf("flag should expire")
	}
}

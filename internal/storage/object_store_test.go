package storage

import (
	"regexp"
	"testing"
	"time"
)

func testStore() *ObjectStore {
	return &ObjectStore{
		bucket:     "proofs",
		publicBase: "https://pub.example.com",
		cdnBase:    "https://cdn.example.com",
	}
}

func TestResolveKeyFromURL(t *testing.T) {
	s := testStore()
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"https://pub.example.com/orders/1001/proof-1.jpg", "orders/1001/proof-1.jpg", true},
		{"https://cdn.example.com/orders/1001/proof-1.jpg", "orders/1001/proof-1.jpg", true},
		{"https://acc.r2.cloudflarestorage.com/proofs/orders/1/p.jpg", "orders/1/p.jpg", true},
		{"https://elsewhere.example.com/x.jpg", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := s.ResolveKeyFromURL(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ResolveKeyFromURL(%q) = %q,%v want %q,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDisplayURL(t *testing.T) {
	s := testStore()
	if got := s.DisplayURL("https://pub.example.com/orders/1/p.jpg"); got != "https://cdn.example.com/orders/1/p.jpg" {
		t.Fatalf("unexpected cdn url %s", got)
	}
	if got := s.DisplayURL("https://other.example.com/p.jpg"); got != "https://other.example.com/p.jpg" {
		t.Fatalf("foreign url should pass through, got %s", got)
	}

	var nilStore *ObjectStore
	if got := nilStore.DisplayURL("x"); got != "x" {
		t.Fatalf("nil store should pass through")
	}
}

func TestProofKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	key := ProofKey("#1001 / A", now)
	pattern := regexp.MustCompile(`^orders/1001A/proof-1700000000123-[0-9a-f]{8}\.jpg$`)
	if !pattern.MatchString(key) {
		t.Fatalf("unexpected key %s", key)
	}
	if ProofKey("", now)[:15] != "orders/unknown/" {
		t.Fatalf("empty order number should map to unknown")
	}
}

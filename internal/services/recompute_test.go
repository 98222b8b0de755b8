package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"courier-reconciliation-service/internal/reconcile"
	"courier-reconciliation-service/internal/store"
)

type blockingFetcher struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	orders  []reconcile.Order
}

func (f *blockingFetcher) FetchOrders(ctx context.Context, filter store.OrderFilter) ([]reconcile.Order, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if call == 1 {
		close(f.started)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.release:
		}
	}
	return f.orders, nil
}

func TestRecomputeLastRequestWins(t *testing.T) {
	courier := "c1"
	fetcher := &blockingFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
		orders: []reconcile.Order{
			{ID: "o1", Status: reconcile.StatusDelivered, TotalOrderFees: 100, PaymentMethod: "cash", AssignedCourierID: &courier},
		},
	}
	r := NewRecomputer(fetcher, nil)

	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Recompute(context.Background(), "admin", DashboardQuery{}, TriggerInitial)
		firstErr <- err
	}()
	<-fetcher.started

	snap, err := r.Recompute(context.Background(), "admin", DashboardQuery{}, TriggerDateRange)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Trigger != TriggerDateRange || snap.Metrics.ByStatus[reconcile.StatusDelivered].Count != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	select {
	case err := <-firstErr:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("expected superseded error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("first recompute was not cancelled")
	}

	latest, ok := r.Latest("admin")
	if !ok || latest.Trigger != TriggerDateRange {
		t.Fatalf("latest should hold the newest result")
	}
}

type staticFetcher struct {
	filters []store.OrderFilter
	err     error
}

func (f *staticFetcher) FetchOrders(ctx context.Context, filter store.OrderFilter) ([]reconcile.Order, error) {
	f.filters = append(f.filters, filter)
	return nil, f.err
}

func TestRecomputePassesCourierFilter(t *testing.T) {
	f := &staticFetcher{}
	r := NewRecomputer(f, nil)

	if _, err := r.Recompute(context.Background(), "courier:c9", DashboardQuery{CourierID: " c9 "}, TriggerCourierChange); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.filters) != 1 || f.filters[0].CourierID == nil || *f.filters[0].CourierID != "c9" {
		t.Fatalf("unexpected filter %+v", f.filters)
	}

	r.Forget("courier:c9")
	if _, ok := r.Latest("courier:c9"); ok {
		t.Fatalf("expected state to be forgotten")
	}
}

func TestRecomputeErrorKeepsPreviousSnapshot(t *testing.T) {
	f := &staticFetcher{}
	r := NewRecomputer(f, nil)
	if _, err := r.Recompute(context.Background(), "k", DashboardQuery{}, TriggerInitial); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.err = errors.New("db down")
	if _, err := r.Recompute(context.Background(), "k", DashboardQuery{}, TriggerChangeEvent); err == nil {
		t.Fatalf("expected error")
	}
	latest, ok := r.Latest("k")
	if !ok || latest.Trigger != TriggerInitial {
		t.Fatalf("previous snapshot should survive a failed recompute")
	}
}

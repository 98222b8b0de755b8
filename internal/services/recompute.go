package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"courier-reconciliation-service/internal/reconcile"
	"courier-reconciliation-service/internal/store"

	"go.uber.org/zap"
)

// ErrSuperseded is returned to a recompute whose result was discarded
// because a newer request for the same dashboard started after it.
var ErrSuperseded = errors.New("recompute superseded by a newer request")

type Trigger string

const (
	TriggerInitial       Trigger = "initial"
	TriggerDateRange     Trigger = "date_range"
	TriggerCourierChange Trigger = "courier_change"
	TriggerChangeEvent   Trigger = "change_event"
)

type OrderFetcher interface {
	FetchOrders(ctx context.Context, f store.OrderFilter) ([]reconcile.Order, error)
}

// DashboardQuery identifies one dashboard view.
type DashboardQuery struct {
	CourierID   string
	From        *time.Time
	To          *time.Time
	IncludeHeld bool
}

func (q DashboardQuery) filter() store.OrderFilter {
	f := store.OrderFilter{From: q.From, To: q.To}
	if id := strings.TrimSpace(q.CourierID); id != "" {
		f.CourierID = &id
	}
	return f
}

type Snapshot struct {
	Query      DashboardQuery    `json:"-"`
	Orders     []reconcile.Order `json:"orders"`
	Metrics    reconcile.Metrics `json:"metrics"`
	Trigger    Trigger           `json:"trigger"`
	ComputedAt time.Time         `json:"computedAt"`
}

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

// Recomputer keeps at most one live fetch per dashboard key. A new request
// cancels the previous one, and a result that finishes after being
// superseded is dropped rather than published.
type Recomputer struct {
	Orders OrderFetcher
	Logger *zap.Logger

	mu       sync.Mutex
	gen      uint64
	inflight map[string]inflight
	latest   map[string]Snapshot
}

func NewRecomputer(orders OrderFetcher, logger *zap.Logger) *Recomputer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recomputer{
		Orders:   orders,
		Logger:   logger,
		inflight: make(map[string]inflight),
		latest:   make(map[string]Snapshot),
	}
}

func (r *Recomputer) Recompute(ctx context.Context, key string, q DashboardQuery, trigger Trigger) (Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.gen++
	gen := r.gen
	if prev, ok := r.inflight[key]; ok {
		prev.cancel()
	}
	r.inflight[key] = inflight{gen: gen, cancel: cancel}
	r.mu.Unlock()

	orders, err := r.Orders.FetchOrders(ctx, q.filter())

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.inflight[key]
	if !ok || current.gen != gen {
		return Snapshot{}, ErrSuperseded
	}
	delete(r.inflight, key)

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return Snapshot{}, err
		}
		r.Logger.Warn("dashboard recompute failed", zap.String("key", key), zap.String("trigger", string(trigger)), zap.Error(err))
		return Snapshot{}, err
	}

	filter := reconcile.MetricsFilter{IncludeHeldOrders: q.IncludeHeld}
	if id := strings.TrimSpace(q.CourierID); id != "" {
		filter.CourierID = &id
	}
	snap := Snapshot{
		Query:      q,
		Orders:     orders,
		Metrics:    reconcile.ComputeMetrics(orders, filter),
		Trigger:    trigger,
		ComputedAt: time.Now(),
	}
	r.latest[key] = snap
	return snap, nil
}

// Latest returns the most recent published snapshot for key.
func (r *Recomputer) Latest(key string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.latest[key]
	return snap, ok
}

// Forget drops cached state once no dashboard is watching key.
func (r *Recomputer) Forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.inflight[key]; ok {
		cur.cancel()
		delete(r.inflight, key)
	}
	delete(r.latest, key)
}

package handlers

import (
	"context"
	"time"

	"courier-reconciliation-service/internal/cache"
	"courier-reconciliation-service/internal/changefeed"
	"courier-reconciliation-service/internal/config"
	"courier-reconciliation-service/internal/importer"
	"courier-reconciliation-service/internal/reconcile"
	"courier-reconciliation-service/internal/store"

	"go.uber.org/zap"
)

// OrderRepository is the slice of the order store the handlers use.
type OrderRepository interface {
	FetchOrders(ctx context.Context, f store.OrderFilter) ([]reconcile.Order, error)
	GetOrder(ctx context.Context, id string) (reconcile.Order, error)
	UpdateOrder(ctx context.Context, id string, p store.OrderPatch) (reconcile.Order, error)
	ApplyHoldFee(ctx context.Context, id string, p reconcile.HoldFeePatch) (reconcile.Order, error)
	ListCouriers(ctx context.Context) ([]reconcile.Courier, error)
	InsertOrderProof(ctx context.Context, orderID string, imageURL string) (reconcile.Proof, error)
	DeleteOrderProof(ctx context.Context, orderID string, proofID string) (reconcile.Proof, error)
}

type ProofStorage interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string, cacheControl string) (string, error)
	DeleteURL(ctx context.Context, raw string) error
	DisplayURL(raw string) string
}

type ImportRunner interface {
	Run(ctx context.Context, since *time.Time) (importer.Summary, error)
}

type JobQueue interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, payload any) error
}

type Handler struct {
	Orders OrderRepository
	Logger *zap.Logger
	Config config.Config

	Proofs      ProofStorage
	Importer    ImportRunner
	Queue       JobQueue
	CourierFees *cache.CourierFees
	Modified    *cache.ModifiedOrders
	Suppressor  *changefeed.Suppressor

	Location *time.Location
	Now      func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) loc() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.UTC
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

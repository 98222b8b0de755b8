package importer

import (
	"context"
	"strings"
	"time"

	"courier-reconciliation-service/internal/queue"
	"courier-reconciliation-service/internal/store"
	"courier-reconciliation-service/internal/utils"

	"go.uber.org/zap"
)

type Source interface {
	FetchOrdersSince(ctx context.Context, since time.Time) ([]ShopifyOrder, error)
}

type Sink interface {
	UpsertImportedOrder(ctx context.Context, in store.ImportedOrder) (store.UpsertResult, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, payload any) error
}

type Summary struct {
	Fetched  int       `json:"fetched"`
	Inserted int       `json:"inserted"`
	Updated  int       `json:"updated"`
	Guarded  int       `json:"guarded"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Since    time.Time `json:"since"`
	Finished time.Time `json:"finishedAt"`
}

type Job struct {
	Source    Source
	Sink      Sink
	Publisher EventPublisher
	Logger    *zap.Logger
	Lookback  time.Duration
	Now       func() time.Time
}

// Run pulls orders changed in the lookback window (or since the explicit
// time) and upserts each one. Single-row failures are logged and counted.
func (j *Job) Run(ctx context.Context, since *time.Time) (Summary, error) {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	logger := j.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	from := now().Add(-j.Lookback)
	if since != nil {
		from = *since
	}
	summary := Summary{Since: from}

	orders, err := j.Source.FetchOrdersSince(ctx, from)
	if err != nil {
		return summary, err
	}
	summary.Fetched = len(orders)

	for _, so := range orders {
		in, ok := ToImportedOrder(so)
		if !ok {
			summary.Skipped++
			continue
		}
		res, err := j.Sink.UpsertImportedOrder(ctx, in)
		if err != nil {
			summary.Failed++
			logger.Warn("import upsert failed", zap.String("externalId", in.ExternalID), zap.Error(err))
			continue
		}
		switch {
		case res.Inserted:
			summary.Inserted++
		case res.Assigned:
			summary.Guarded++
		default:
			summary.Updated++
		}
	}
	summary.Finished = now()

	logger.Info("order import finished",
		zap.Int("fetched", summary.Fetched),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("guarded", summary.Guarded),
		zap.Int("failed", summary.Failed),
	)

	if j.Publisher != nil {
		payload := map[string]any{"type": "imports.completed", "summary": summary}
		if err := j.Publisher.PublishJSON(ctx, queue.EventsExchange, queue.ImportDoneRK, payload); err != nil {
			logger.Warn("import completion publish failed", zap.Error(err))
		}
	}
	return summary, nil
}

// ToImportedOrder converts a storefront order; orders without an id are skipped.
func ToImportedOrder(so ShopifyOrder) (store.ImportedOrder, bool) {
	externalID := strings.TrimSpace(so.ID.String())
	if externalID == "" {
		return store.ImportedOrder{}, false
	}
	number := strings.TrimSpace(so.Name)
	if number == "" {
		number = strings.TrimSpace(so.OrderNumber.String())
	}
	if number == "" {
		number = externalID
	}
	method, status := NormalizeGateway(so.GatewayName(), so.FinancialStatus)
	return store.ImportedOrder{
		ExternalID:      externalID,
		OrderNumber:     number,
		TotalOrderFees:  utils.ParseAmount(so.TotalPrice),
		PaymentMethod:   method,
		PaymentStatus:   status,
		FinancialStatus: strings.TrimSpace(so.FinancialStatus),
		SourceCreatedAt: so.CreatedAt,
		SourceUpdatedAt: so.UpdatedAt,
	}, true
}

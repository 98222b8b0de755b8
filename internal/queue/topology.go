package queue

import (
	"context"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange     = "reconcile.events"
	EventsQueue        = "reconcile.events.audit"
	OrderChangedPrefix = "orders.changed."
	ImportDoneRK       = "imports.completed"

	ImportJobsExchange = "reconcile.import_jobs"
	ImportJobsQueue    = "reconcile.import_jobs.run"
	ImportJobsDLQ      = "reconcile.import_jobs.dlq"
	ImportJobsRK       = "run"
	ImportJobsDeadRK   = "dead"
)

// OrderChangedKey is the routing key for a change event of the given type.
func OrderChangedKey(eventType string) string {
	eventType = strings.ToLower(strings.TrimSpace(eventType))
	if eventType == "" {
		eventType = "update"
	}
	return OrderChangedPrefix + eventType
}

func EnsureEventsTopology(ctx context.Context, qc *Client) error {
	if qc == nil {
		return nil
	}
	if err := qc.EnsureExchange(EventsExchange); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(EventsQueue); err != nil {
		return err
	}
	if err := qc.BindQueue(EventsQueue, EventsExchange, OrderChangedPrefix+"#"); err != nil {
		return err
	}
	return qc.BindQueue(EventsQueue, EventsExchange, ImportDoneRK)
}

func EnsureImportJobsTopology(ctx context.Context, qc *Client) error {
	if qc == nil {
		return nil
	}

	if err := qc.EnsureExchangeKind(ImportJobsExchange, "direct"); err != nil {
		return err
	}

	if _, err := qc.EnsureQueue(ImportJobsDLQ); err != nil {
		return err
	}
	if err := qc.BindQueue(ImportJobsDLQ, ImportJobsExchange, ImportJobsDeadRK); err != nil {
		return err
	}

	_, err := qc.EnsureQueueWithArgs(ImportJobsQueue, amqp.Table{
		"x-dead-letter-exchange":    ImportJobsExchange,
		"x-dead-letter-routing-key": ImportJobsDeadRK,
	})
	if err != nil {
		return err
	}
	return qc.BindQueue(ImportJobsQueue, ImportJobsExchange, ImportJobsRK)
}

// ImportJob asks a worker to pull external orders updated since Since.
type ImportJob struct {
	Kind      string `json:"kind"`
	Since     string `json:"since,omitempty"`
	CreatedAt string `json:"createdAt"`
	Attempt   int    `json:"attempt"`
}

const ImportJobKind = "import.orders"

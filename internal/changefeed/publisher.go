package changefeed

import (
	"context"
	"encoding/json"
	"errors"

	"courier-reconciliation-service/internal/queue"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const NATSSubject = "orders.changed"

// Publisher forwards change events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// AMQPPublisher routes events onto the reconcile topic exchange.
type AMQPPublisher struct {
	Client *queue.Client
}

func (p AMQPPublisher) Publish(ctx context.Context, evt Event) error {
	if p.Client == nil {
		return nil
	}
	return p.Client.PublishJSON(ctx, queue.EventsExchange, queue.OrderChangedKey(string(evt.Type)), evt)
}

// NATSPublisher emits events on a plain NATS subject.
type NATSPublisher struct {
	Conn    *nats.Conn
	Subject string
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("courier-reconciliation"))
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{Conn: conn, Subject: NATSSubject}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, evt Event) error {
	if p == nil || p.Conn == nil {
		return nil
	}
	if p.Conn.IsClosed() {
		return nats.ErrConnectionClosed
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	subject := p.Subject
	if subject == "" {
		subject = NATSSubject
	}
	return p.Conn.Publish(subject, data)
}

func (p *NATSPublisher) Close() {
	if p != nil && p.Conn != nil {
		p.Conn.Close()
	}
}

// Fanout publishes to every configured publisher; one failing sink does
// not stop the others.
type Fanout struct {
	Publishers []Publisher
	Logger     *zap.Logger
}

func (f Fanout) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range f.Publishers {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			if f.Logger != nil {
				f.Logger.Warn("change event publish failed", zap.String("orderId", evt.OrderID), zap.Error(err))
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

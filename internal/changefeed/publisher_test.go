package changefeed

import (
	"context"
	"errors"
	"testing"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, evt Event) error {
	r.events = append(r.events, evt)
	return r.err
}

func TestFanoutContinuesPastFailure(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("broker down")}
	ok := &recordingPublisher{}
	f := Fanout{Publishers: []Publisher{failing, nil, ok}}

	err := f.Publish(context.Background(), Event{Type: EventUpdate, OrderID: "o1"})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if len(ok.events) != 1 || ok.events[0].OrderID != "o1" {
		t.Fatalf("second publisher should still receive the event")
	}
}

func TestDisabledPublishersAreNoops(t *testing.T) {
	var natsPub *NATSPublisher
	f := Fanout{Publishers: []Publisher{AMQPPublisher{}, natsPub}}
	if err := f.Publish(context.Background(), Event{OrderID: "o1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

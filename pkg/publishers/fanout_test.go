package publishers

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  atomic.Int32
	closed bool
	order  *[]string
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls.Add(1)
	return s.err
}

func (s *stubPublisher) Close() error {
	s.closed = true
	if s.order != nil {
		*s.order = append(*s.order, s.id)
	}
	return nil
}

func TestFanoutPublishReachesEveryPublisher(t *testing.T) {
	a := &stubPublisher{id: "a", typ: TypeHTTP}
	b := &stubPublisher{id: "b", typ: TypeNATS}
	fanout := NewFanout([]Publisher{a, b})

	n, err := fanout.Publish(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 2 || a.calls.Load() != 1 || b.calls.Load() != 1 {
		t.Fatalf("delivered=%d a=%d b=%d", n, a.calls.Load(), b.calls.Load())
	}
}

func TestFanoutPublishReportsDeliveryErrors(t *testing.T) {
	boom := errors.New("broker down")
	fanout := NewFanout([]Publisher{
		&stubPublisher{id: "ok", typ: TypeHTTP},
		&stubPublisher{id: "bad", typ: TypeSQS, err: boom},
	})

	n, err := fanout.Publish(context.Background(), testEvent())
	if n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if de.PublisherID != "bad" || de.Type != TypeSQS || !errors.Is(err, boom) {
		t.Fatalf("unexpected delivery error %+v", de)
	}
}

func TestEmptyFanoutIsNoop(t *testing.T) {
	var nilFanout *Fanout
	if n, err := nilFanout.Publish(context.Background(), testEvent()); n != 0 || err != nil {
		t.Fatalf("nil fanout: n=%d err=%v", n, err)
	}
	if n, err := NewFanout(nil).Publish(context.Background(), testEvent()); n != 0 || err != nil {
		t.Fatalf("empty fanout: n=%d err=%v", n, err)
	}
}

func TestFanoutCloseReleasesInReverseOrder(t *testing.T) {
	var order []string
	a := &stubPublisher{id: "a", typ: TypeNATS, order: &order}
	b := &stubPublisher{id: "b", typ: TypeGCPPubSub, order: &order}
	fanout := NewFanout([]Publisher{a, nil, b})
	if fanout.Size() != 2 {
		t.Fatalf("expected nil publishers to be skipped")
	}
	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if strings.Join(order, ",") != "b,a" {
		t.Fatalf("close order = %v", order)
	}
}

func TestBuildersFanout(t *testing.T) {
	fanout, err := DefaultBuilders().Fanout(context.Background(), []PublisherConfig{
		{ID: "hook", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com/hook"}},
	}, nil)
	if err != nil {
		t.Fatalf("Fanout: %v", err)
	}
	if fanout.Size() != 1 {
		t.Fatalf("expected 1 publisher, got %d", fanout.Size())
	}
}

func TestBuildersRejectUnknownType(t *testing.T) {
	_, err := DefaultBuilders().Fanout(context.Background(), []PublisherConfig{
		{ID: "x", Type: "kafka"},
	}, nil)
	if err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if !strings.Contains(err.Error(), "gcp_pubsub, http, nats, sns, sqs") {
		t.Fatalf("error should list supported types: %v", err)
	}
}

func TestBuildersCloseEarlierPublishersOnFailure(t *testing.T) {
	built := &stubPublisher{id: "first", typ: "stub"}
	b := Builders{
		"stub": func(context.Context, PublisherConfig, Logger) (Publisher, error) { return built, nil },
		"fail": func(context.Context, PublisherConfig, Logger) (Publisher, error) { return nil, errors.New("nope") },
	}
	_, err := b.Fanout(context.Background(), []PublisherConfig{
		{ID: "first", Type: "stub"},
		{ID: "second", Type: "fail"},
	}, nil)
	if err == nil {
		t.Fatalf("expected build failure")
	}
	if !built.closed {
		t.Fatalf("expected already-built publisher to be closed")
	}
}

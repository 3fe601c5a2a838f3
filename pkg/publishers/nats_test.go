package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
)

type fakeNATSConn struct {
	msgs       []*nats.Msg
	pubErr     error
	flushErr   error
	hadTimeout bool
	closed     bool
}

func (f *fakeNATSConn) PublishMsg(m *nats.Msg) error {
	if f.pubErr != nil {
		return f.pubErr
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeNATSConn) FlushWithContext(ctx context.Context) error {
	_, f.hadTimeout = ctx.Deadline()
	return f.flushErr
}

func (f *fakeNATSConn) Close() { f.closed = true }

func TestNATSPublisherPublishesWithHeaders(t *testing.T) {
	conn := &fakeNATSConn{}
	pub := &natsPublisher{id: "bus", typ: TypeNATS, subject: "overlod.eds.changed", conn: conn, log: noopLogger{}}

	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(conn.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(conn.msgs))
	}
	msg := conn.msgs[0]
	if msg.Subject != "overlod.eds.changed" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if msg.Header.Get("context") != "http://example.org/graph/people" || msg.Header.Get(nats.MsgIdHdr) != "evt-1" {
		t.Fatalf("unexpected headers %#v", msg.Header)
	}
	if !conn.hadTimeout {
		t.Fatalf("flush must be bounded by a deadline")
	}

	if err := pub.Close(); err != nil || !conn.closed {
		t.Fatalf("expected connection closed, err=%v", err)
	}
}

func TestNATSPublisherSurfacesErrors(t *testing.T) {
	pub := &natsPublisher{id: "bus", subject: "s", conn: &fakeNATSConn{pubErr: errors.New("down")}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected publish error")
	}

	pub = &natsPublisher{id: "bus", subject: "s", conn: &fakeNATSConn{flushErr: errors.New("slow")}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected flush error")
	}
}

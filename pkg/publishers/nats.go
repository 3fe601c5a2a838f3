package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// natsConn is the subset of *nats.Conn the publisher needs.
type natsConn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// natsPublisher publishes events on a NATS subject.
type natsPublisher struct {
	id      string
	typ     string
	subject string
	timeout time.Duration
	conn    natsConn
	log     Logger
}

func newNATSPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.NATS == nil {
		return nil, fmt.Errorf("publisher %q missing nats configuration", cfg.ID)
	}

	conn, err := nats.Connect(cfg.NATS.URL,
		nats.Name("overlod-admin/"+cfg.ID),
		nats.Timeout(time.Duration(cfg.NATS.TimeoutSeconds)*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &natsPublisher{
		id:      cfg.ID,
		typ:     TypeNATS,
		subject: cfg.NATS.Subject,
		timeout: time.Duration(cfg.NATS.TimeoutSeconds) * time.Second,
		conn:    conn,
		log:     ensureLogger(log),
	}, nil
}

func (n *natsPublisher) ID() string   { return n.id }
func (n *natsPublisher) Type() string { return n.typ }

// Publish sends the event and flushes so delivery errors surface here.
func (n *natsPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(n.subject)
	msg.Data = payload
	for k, v := range evt.Attributes() {
		msg.Header.Set(k, v)
	}
	msg.Header.Set(nats.MsgIdHdr, evt.ID)

	if err := n.conn.PublishMsg(msg); err != nil {
		n.log.ErrorObj("nats publisher send failed", "publisher_nats_error", map[string]any{
			"publisher_id": n.id,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish to nats: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// FlushWithContext rejects contexts without a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.flushTimeout())
		defer cancel()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	n.log.DebugObj("nats publisher delivered event", "publisher_nats_delivery", map[string]any{
		"publisher_id": n.id,
		"subject":      n.subject,
	})
	return nil
}

func (n *natsPublisher) flushTimeout() time.Duration {
	if n.timeout <= 0 {
		return natsDefaultTimeoutSeconds * time.Second
	}
	return n.timeout
}

func (n *natsPublisher) Close() error {
	n.conn.Close()
	return nil
}

package publishers

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Builders maps a publisher type onto its constructor.
type Builders map[string]Builder

// DefaultBuilders knows every sink a change event can be sent to.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:      newHTTPPublisher,
		TypeSQS:       newSQSPublisher,
		TypeSNS:       newSNSPublisher,
		TypeGCPPubSub: newGCPPubSubPublisher,
		TypeNATS:      newNATSPublisher,
	}
}

// Types lists the supported types in lexical order.
func (b Builders) Types() []string {
	out := make([]string, 0, len(b))
	for typ := range b {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Build constructs the publisher described by cfg.
func (b Builders) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typ == "" {
		return nil, fmt.Errorf("publisher %q has no type configured", cfg.ID)
	}
	build, ok := b[typ]
	if !ok || build == nil {
		return nil, fmt.Errorf("publisher %q: unsupported type %q (supported: %s)",
			cfg.ID, cfg.Type, strings.Join(b.Types(), ", "))
	}
	pub, err := build(ctx, cfg, ensureLogger(log))
	if err != nil {
		return nil, fmt.Errorf("build %s publisher %q: %w", typ, cfg.ID, err)
	}
	return pub, nil
}

// Fanout builds every entry of cfgs and groups them. When one entry fails,
// the publishers built so far are closed and the error is returned.
func (b Builders) Fanout(ctx context.Context, cfgs []PublisherConfig, log Logger) (*Fanout, error) {
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := b.Build(ctx, cfg, log)
		if err != nil {
			_ = NewFanout(pubs).Close()
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return NewFanout(pubs), nil
}

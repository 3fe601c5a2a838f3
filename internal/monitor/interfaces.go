package monitor

import (
	"context"
	"time"

	"github.com/samvad-hq/overlod-admin/internal/storage"
	"github.com/samvad-hq/overlod-admin/pkg/lod"
	"github.com/samvad-hq/overlod-admin/pkg/publishers"
)

// SourceLister lists the server's External Data Sources (lod.EDS).
type SourceLister interface {
	List(ctx context.Context) ([]lod.EDSParams, error)
}

// Refresher asks the server to re-import a source (lod.EDS).
type Refresher interface {
	Update(ctx context.Context, graph string) (string, error)
}

// EventPublisher publishes change events downstream (publishers.Fanout).
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// StampStore remembers the last stamp seen per context (storage.Store).
type StampStore interface {
	LastModified(graph string) (time.Time, bool, error)
	Record(graph string, stamp time.Time) error
	Forget(graph string) error
	Entries() ([]storage.Entry, error)
}

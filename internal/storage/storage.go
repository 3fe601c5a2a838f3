// Package storage keeps the freshness ledger of watched sources: the last
// Last-Modified stamp seen for each EDS graph.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Backend names accepted by NewStore.
const (
	TypeNone  = "none"
	TypeBBolt = "bbolt"
)

// Entry is one ledger line.
type Entry struct {
	Graph        string    `json:"-"`
	LastModified time.Time `json:"last_modified"`
	RecordedAt   time.Time `json:"recorded_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Store is the freshness ledger.
type Store interface {
	Close() error
	// LastModified returns the recorded stamp; ok is false when graph was
	// never recorded or its entry expired.
	LastModified(graph string) (stamp time.Time, ok bool, err error)
	// Record stores stamp for graph and renews its expiry.
	Record(graph string, stamp time.Time) error
	// Forget drops graph from the ledger. Unknown graphs are ignored.
	Forget(graph string) error
	// Entries lists live entries ordered by graph.
	Entries() ([]Entry, error)
}

// Options controls entry retention.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultEntryTTL        = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore opens the backend named by typ.
func NewStore(typ, path string, opts Options) (Store, error) {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}

	switch strings.TrimSpace(strings.ToLower(typ)) {
	case "", TypeNone, "disabled":
		return noopStore{}, nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		s, err := openBolt(path, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// noopStore remembers nothing, so every check is a first sighting.
type noopStore struct{}

func (noopStore) Close() error                                 { return nil }
func (noopStore) LastModified(string) (time.Time, bool, error) { return time.Time{}, false, nil }
func (noopStore) Record(string, time.Time) error               { return nil }
func (noopStore) Forget(string) error                          { return nil }
func (noopStore) Entries() ([]Entry, error)                    { return nil, nil }

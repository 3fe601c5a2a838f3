package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var ledgerBucket = []byte("stamps")

// boltStore keeps the ledger in a single bbolt bucket keyed by graph URI,
// with JSON-encoded Entry values.
type boltStore struct {
	db       *bolt.DB
	ttl      time.Duration
	sweepGap time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

func openBolt(path string, opts Options) (*boltStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	// A running watcher holds the file lock; fail fast instead of hanging.
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(ledgerBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init ledger bucket: %w", err)
	}

	return &boltStore{
		db:        db,
		ttl:       opts.EntryTTL,
		sweepGap:  opts.CleanupInterval,
		now:       time.Now,
		lastSweep: time.Now(),
	}, nil
}

func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) LastModified(graph string) (time.Time, bool, error) {
	now := b.now()
	if err := b.sweep(now); err != nil {
		return time.Time{}, false, err
	}

	var (
		entry Entry
		found bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(ledgerBucket)
		raw := bucket.Get([]byte(graph))
		if raw == nil {
			return nil
		}
		e, ok := decodeEntry(raw)
		if !ok || !e.ExpiresAt.After(now) {
			return bucket.Delete([]byte(graph))
		}
		entry, found = e, true
		return nil
	})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read stamp for %s: %w", graph, err)
	}
	return entry.LastModified, found, nil
}

func (b *boltStore) Record(graph string, stamp time.Time) error {
	now := b.now()
	if err := b.sweep(now); err != nil {
		return err
	}

	raw, err := json.Marshal(Entry{
		LastModified: stamp.UTC(),
		RecordedAt:   now.UTC(),
		ExpiresAt:    now.Add(b.ttl).UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode stamp for %s: %w", graph, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ledgerBucket).Put([]byte(graph), raw)
	})
}

func (b *boltStore) Forget(graph string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ledgerBucket).Delete([]byte(graph))
	})
}

// Entries returns live entries; bbolt iterates keys in byte order.
func (b *boltStore) Entries() ([]Entry, error) {
	now := b.now()
	var out []Entry
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(ledgerBucket).ForEach(func(k, v []byte) error {
			e, ok := decodeEntry(v)
			if !ok || !e.ExpiresAt.After(now) {
				return nil
			}
			e.Graph = string(k)
			out = append(out, e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list stamps: %w", err)
	}
	return out, nil
}

// sweep deletes expired and unreadable entries, at most once per sweepGap.
func (b *boltStore) sweep(now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Sub(b.lastSweep) < b.sweepGap {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(ledgerBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if e, ok := decodeEntry(v); ok && e.ExpiresAt.After(now) {
				continue
			}
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sweep expired stamps: %w", err)
	}
	b.lastSweep = now
	return nil
}

func decodeEntry(raw []byte) (Entry, bool) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil || e.ExpiresAt.IsZero() {
		return Entry{}, false
	}
	return e, true
}

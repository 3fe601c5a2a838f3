// Package monitor detects External Data Sources whose upstream file changed
// since it was last seen, by comparing HTTP Last-Modified stamps.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samvad-hq/overlod-admin/internal/domain"
	"github.com/samvad-hq/overlod-admin/internal/logger"
	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
	"github.com/samvad-hq/overlod-admin/pkg/lod"
	"github.com/samvad-hq/overlod-admin/pkg/publishers"
)

// Outcome classifies the result of checking one source.
type Outcome string

const (
	OutcomeFirstSeen Outcome = "first_seen"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeChanged   Outcome = "changed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Check is the per-source line of a Report.
type Check struct {
	Source       domain.Source
	Outcome      Outcome
	LastModified time.Time
	Detail       string
}

// Report summarizes one monitoring pass.
type Report struct {
	Checks  []Check
	Changes []domain.SourceChange
	// Forgotten lists ledger graphs dropped because the server no longer
	// lists them.
	Forgotten []string
}

// Count returns how many checks ended with outcome o.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, c := range r.Checks {
		if c.Outcome == o {
			n++
		}
	}
	return n
}

// Service runs monitoring passes over every configured source.
type Service struct {
	sources   SourceLister
	probe     httpclient.Client
	store     StampStore
	publisher EventPublisher
	refresher Refresher
	log       logger.Logger

	now   func() time.Time
	newID func() string
}

// NewService wires a monitor. A nil refresher disables auto-refresh; a nil
// publisher only records stamps.
func NewService(sources SourceLister, probe httpclient.Client, store StampStore, pub EventPublisher, refresher Refresher, log logger.Logger) *Service {
	if probe == nil {
		probe = httpclient.NewRestyClient(30 * time.Second)
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &Service{
		sources:   sources,
		probe:     probe,
		store:     store,
		publisher: pub,
		refresher: refresher,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// RunOnce checks every source once. Per-source failures are joined into the
// returned error and never stop the pass.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	if s == nil || s.sources == nil || s.store == nil {
		return Report{}, fmt.Errorf("monitor service is not initialized")
	}

	params, err := s.sources.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list eds sources: %w", err)
	}

	var (
		report Report
		errs   []error
		listed = make(map[string]bool, len(params))
	)
	for _, p := range params {
		listed[p.Context] = true
	}
	for _, p := range params {
		select {
		case <-ctx.Done():
			return report, errors.Join(append(errs, ctx.Err())...)
		default:
		}

		src := domain.Source{Context: p.Context, URL: p.URL, EDSType: p.EDSType, ContentType: p.ContentType}
		check, change, err := s.checkSource(ctx, src)
		report.Checks = append(report.Checks, check)
		if change != nil {
			report.Changes = append(report.Changes, *change)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.Context, err))
			s.log.ErrorObj("source check failed", "monitor_error", map[string]any{
				"context": src.Context,
				"url":     src.URL,
				"error":   err.Error(),
			})
		}
	}

	forgotten, err := s.forgetRemoved(listed)
	report.Forgotten = forgotten
	if err != nil {
		errs = append(errs, err)
	}

	s.log.InfoObj("monitor pass completed", "monitor_result", map[string]any{
		"sources":    len(params),
		"changed":    report.Count(OutcomeChanged),
		"first_seen": report.Count(OutcomeFirstSeen),
		"skipped":    report.Count(OutcomeSkipped),
		"failed":     report.Count(OutcomeFailed),
		"forgotten":  len(report.Forgotten),
	})
	return report, errors.Join(errs...)
}

func (s *Service) checkSource(ctx context.Context, src domain.Source) (Check, *domain.SourceChange, error) {
	check := Check{Source: src}

	if !probeable(src) {
		check.Outcome, check.Detail = OutcomeSkipped, "source is not an http(s) url"
		return check, nil, nil
	}

	stamp, ok, err := s.fetchLastModified(ctx, src.URL)
	if err != nil {
		check.Outcome, check.Detail = OutcomeFailed, err.Error()
		return check, nil, err
	}
	if !ok {
		check.Outcome, check.Detail = OutcomeSkipped, "no Last-Modified header"
		return check, nil, nil
	}
	check.LastModified = stamp

	prev, seen, err := s.store.LastModified(src.Context)
	if err != nil {
		check.Outcome, check.Detail = OutcomeFailed, err.Error()
		return check, nil, fmt.Errorf("read stored stamp: %w", err)
	}
	if !seen {
		check.Outcome = OutcomeFirstSeen
		if err := s.store.Record(src.Context, stamp); err != nil {
			check.Outcome, check.Detail = OutcomeFailed, err.Error()
			return check, nil, fmt.Errorf("record stamp: %w", err)
		}
		return check, nil, nil
	}
	if !stamp.After(prev) {
		// Re-recording renews the entry, so only graphs that stop being
		// listed ever expire.
		check.Outcome = OutcomeUnchanged
		if err := s.store.Record(src.Context, prev); err != nil {
			check.Outcome, check.Detail = OutcomeFailed, err.Error()
			return check, nil, fmt.Errorf("renew stamp: %w", err)
		}
		return check, nil, nil
	}

	change := &domain.SourceChange{
		ID:           s.newID(),
		Source:       src,
		Previous:     prev,
		LastModified: stamp,
		DetectedAt:   s.now().UTC(),
	}
	check.Outcome = OutcomeChanged

	// The stamp is only recorded once every step succeeded, so a failed
	// refresh or publish is retried on the next pass.
	var errs []error
	if s.refresher != nil {
		if _, err := s.refresher.Update(ctx, src.Context); err != nil {
			errs = append(errs, fmt.Errorf("refresh: %w", err))
		} else {
			change.Refreshed = true
		}
	}
	if s.publisher != nil {
		if _, err := s.publisher.Publish(ctx, publishers.NewEvent(*change)); err != nil {
			errs = append(errs, fmt.Errorf("publish: %w", err))
		}
	}
	if len(errs) == 0 {
		if err := s.store.Record(src.Context, stamp); err != nil {
			errs = append(errs, fmt.Errorf("record stamp: %w", err))
		}
	}

	s.log.InfoObj("source change detected", "source_change", map[string]any{
		"id":            change.ID,
		"context":       src.Context,
		"previous":      prev.UTC(),
		"last_modified": stamp.UTC(),
		"refreshed":     change.Refreshed,
	})
	if err := errors.Join(errs...); err != nil {
		check.Detail = err.Error()
		return check, change, err
	}
	return check, change, nil
}

// forgetRemoved drops ledger entries for graphs the server stopped listing,
// so a source that is re-added later starts as a first sighting.
func (s *Service) forgetRemoved(listed map[string]bool) ([]string, error) {
	entries, err := s.store.Entries()
	if err != nil {
		return nil, fmt.Errorf("list recorded stamps: %w", err)
	}
	var (
		forgotten []string
		errs      []error
	)
	for _, e := range entries {
		if listed[e.Graph] {
			continue
		}
		if err := s.store.Forget(e.Graph); err != nil {
			errs = append(errs, fmt.Errorf("forget %s: %w", e.Graph, err))
			continue
		}
		forgotten = append(forgotten, e.Graph)
		s.log.InfoObj("source no longer listed; stamp forgotten", "context", e.Graph)
	}
	return forgotten, errors.Join(errs...)
}

// fetchLastModified HEADs rawURL. ok is false when the server sends no
// usable Last-Modified header.
func (s *Service) fetchLastModified(ctx context.Context, rawURL string) (time.Time, bool, error) {
	resp, err := s.probe.Head(ctx, rawURL, nil)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("head %s: %w", rawURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return time.Time{}, false, lod.NewServerError(resp.StatusCode(), "HEAD "+rawURL)
	}
	raw := strings.TrimSpace(resp.Header("Last-Modified"))
	if raw == "" {
		return time.Time{}, false, nil
	}
	stamp, err := http.ParseTime(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse Last-Modified %q: %w", raw, err)
	}
	return stamp.UTC(), true, nil
}

func probeable(src domain.Source) bool {
	if src.EDSType == lod.EDSTypeLocalRDFFile {
		return false
	}
	u, err := url.Parse(src.URL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samvad-hq/overlod-admin/internal/config"
	"github.com/samvad-hq/overlod-admin/internal/logger"
	"github.com/samvad-hq/overlod-admin/internal/monitor"
	"github.com/samvad-hq/overlod-admin/internal/storage"
	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
	"github.com/samvad-hq/overlod-admin/pkg/lod"
	"github.com/samvad-hq/overlod-admin/pkg/publishers"
)

// Watcher is the source-monitoring runtime. It owns the storage backend, the
// publishers and the optional metrics endpoint, and runs monitor passes on a
// fixed interval.
type Watcher struct {
	cfg      *config.Config
	fanout   *publishers.Fanout
	monitor  *monitor.Service
	interval time.Duration
	log      logger.Logger
	store    storage.Store
	registry *prometheus.Registry
	metrics  *watchMetrics
}

// NewWatcher builds a watcher runtime from configuration.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.RequireBaseURL(); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	httpMetrics, err := httpclient.NewMetrics(registry)
	if err != nil {
		return nil, err
	}
	wm, err := newWatchMetrics(registry)
	if err != nil {
		return nil, err
	}

	client, err := NewLODClient(cfg, httpclient.WithMetrics(httpMetrics), httpclient.WithLogger(log))
	if err != nil {
		return nil, err
	}

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := OpenLedger(cfg)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	var refresher monitor.Refresher
	if cfg.AutoRefresh {
		refresher = client.EDS
	}
	probe := httpclient.NewRestyClient(cfg.Timeout)
	svc := monitor.NewService(client.EDS, probe, store, fanout, refresher, log)

	return &Watcher{
		cfg:      cfg,
		fanout:   fanout,
		monitor:  svc,
		interval: cfg.WatchInterval,
		log:      log,
		store:    store,
		registry: registry,
		metrics:  wm,
	}, nil
}

// OpenLedger opens the configured freshness ledger.
func OpenLedger(cfg *config.Config) (storage.Store, error) {
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// NewLODClient builds the server client from the connection settings.
func NewLODClient(cfg *config.Config, extra ...httpclient.TransportOption) (*lod.Client, error) {
	opts := []httpclient.TransportOption{
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithBasicAuth(cfg.Username, cfg.Password),
		httpclient.WithUserAgent(cfg.AppName),
	}
	if cfg.LegacyQuery {
		opts = append(opts, httpclient.WithLegacyQuery())
	}
	opts = append(opts, extra...)

	client, err := lod.New(lod.Config{BaseURL: cfg.BaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("build lod client: %w", err)
	}
	return client, nil
}

// buildFanout loads enabled publishers. A missing publishers file leaves the
// watcher with none; stamps are still tracked.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if _, err := os.Stat(cfg.PublishersFile); errors.Is(err, os.ErrNotExist) {
		log.WarnObj("publishers file not found; changes will only be logged", "publishers_file", cfg.PublishersFile)
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	fanout, err := publishers.DefaultBuilders().Fanout(ctx, enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return fanout, nil
}

// RunOnce performs a single monitoring pass.
func (w *Watcher) RunOnce(ctx context.Context) (monitor.Report, error) {
	if w == nil || w.monitor == nil {
		return monitor.Report{}, fmt.Errorf("watcher is not initialized")
	}
	start := time.Now()
	w.log.InfoObj("watch pass started", "watch_meta", map[string]any{
		"started_at": start.UTC(),
	})
	report, err := w.monitor.RunOnce(ctx)
	w.metrics.observe(report)
	w.log.InfoObj("watch pass completed", "watch_meta", map[string]any{
		"checked":    len(report.Checks),
		"changed":    len(report.Changes),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return report, err
}

// Run starts the watch loop until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.monitor == nil {
		return fmt.Errorf("watcher is not initialized")
	}

	if w.cfg.MetricsAddr != "" {
		srv, err := startMetricsServer(w.cfg.MetricsAddr, w.registry)
		if err != nil {
			return err
		}
		w.log.InfoObj("metrics endpoint listening", "metrics_addr", srv.Addr())
		defer func() {
			if err := srv.Shutdown(); err != nil {
				w.log.ErrorObj("metrics shutdown failed", "error", err.Error())
			}
		}()
	}

	w.log.InfoObj("watch loop starting", "watcher_state", map[string]any{
		"publishers_count": w.fanout.Size(),
		"watch_interval":   w.interval.String(),
		"auto_refresh":     w.cfg.AutoRefresh,
	})

	if _, err := w.RunOnce(ctx); err != nil {
		w.log.ErrorObj("initial watch pass failed", "error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watch loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.ErrorObj("scheduled watch pass failed", "error", err.Error())
			}
		}
	}
}

// Gatherer exposes the watcher's metrics registry.
func (w *Watcher) Gatherer() prometheus.Gatherer { return w.registry }

// Close releases publishers and the storage backend.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	var errs []error
	if err := w.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

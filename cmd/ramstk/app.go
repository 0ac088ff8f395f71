package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"

	"ramstk/internal/analysis"
	"ramstk/internal/blob"
	"ramstk/internal/config"
	"ramstk/internal/core"
	"ramstk/internal/events"
	"ramstk/internal/observability"
	"ramstk/pkg/domain"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath  string
	revision    int
	hardware    int
	metricsFile string

	settings config.Settings
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *observability.PrometheusRecorder
	bus      *events.Bus
	closers  []io.Closer
}

func (a *app) setup() error {
	s, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.settings = s
	logger, err := observability.NewLogger(s.Log.Level, s.Log.Format, a.stderr)
	if err != nil {
		return usageError{err}
	}
	a.logger = logger
	a.registry = prometheus.NewRegistry()
	if a.metrics, err = observability.NewPrometheusRecorder(s.Metrics.Namespace, a.registry); err != nil {
		return err
	}
	a.bus = events.NewBus(logger)
	return a.bus.Subscribe(events.LogConsumer{Logger: logger})
}

// close writes the metrics textfile, if requested, and releases stores.
func (a *app) close() error {
	var first error
	if a.metricsFile != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			first = fmt.Errorf("write metrics: %w", err)
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func (a *app) scope() domain.Scope {
	return domain.Scope{RevisionID: a.revision, HardwareID: a.hardware}
}

func (a *app) service(ctx context.Context) (*core.Service, error) {
	store, err := core.OpenPersistentStore(ctx, a.settings.StorageConfig(), core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	return core.NewService(store, core.WithLogger(a.logger)), nil
}

// manager opens and loads the tree of h. PoF trees need a mode id.
func (a *app) manager(ctx context.Context, h domain.Hierarchy, mode int) (*analysis.Manager, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	opts := []analysis.Option{
		analysis.WithPublisher(a.bus),
		analysis.WithLogger(a.logger),
		analysis.WithMetrics(a.metrics),
		analysis.WithTracer(observability.NewOTelTracer(nil,
			attribute.String("ramstk.hierarchy", h.String()),
			attribute.String("ramstk.scope", a.scope().String()),
		)),
	}
	if h == domain.HierarchyPoF {
		if mode <= 0 {
			return nil, usageError{fmt.Errorf("pof trees need --mode")}
		}
		opts = append(opts, analysis.WithMode(mode))
	}
	m, err := analysis.NewManager(h, a.scope(), svc, opts...)
	if err != nil {
		return nil, err
	}
	if err := m.SelectAll(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *app) blobStore(ctx context.Context) (blob.Store, error) {
	st, err := blob.Open(ctx, a.settings.BlobConfig())
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return st, nil
}

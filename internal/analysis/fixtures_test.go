package analysis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ramstk/internal/analysis"
	"ramstk/internal/core"
	"ramstk/pkg/domain"
)

var scope = domain.Scope{RevisionID: 1, HardwareID: 1}

func record(t *testing.T, level domain.Level, key ...int) domain.Record {
	t.Helper()
	rec, err := domain.NewRecord(level, scope, domain.Key(key))
	require.NoError(t, err)
	return rec
}

// seedWorksheet stores two modes. Mode 6 carries the full FMEA chain and a
// PoF branch under mechanism 3; mode 7 has a single default mechanism.
func seedWorksheet(t *testing.T, svc *core.Service) {
	t.Helper()
	mode := record(t, domain.LevelMode, 6).(*domain.Mode)
	mode.RPNSeverity, mode.RPNSeverityNew = 8, 8
	mode.ModeRatio, mode.ModeOpTime, mode.EffectProbability = 0.428, 4.2, 1.0
	mode.SeverityClass = "III"

	mech := record(t, domain.LevelMechanism, 6, 3).(*domain.Mechanism)
	mech.RPNOccurrence, mech.RPNDetection = 8, 3
	mech.RPNOccurrenceNew, mech.RPNDetectionNew = 4, 2

	cause := record(t, domain.LevelCause, 6, 3, 3).(*domain.Cause)
	cause.RPNOccurrence, cause.RPNDetection = 5, 5
	cause.RPNOccurrenceNew, cause.RPNDetectionNew = 2, 2

	other := record(t, domain.LevelMode, 7).(*domain.Mode)
	other.ModeRatio, other.ModeOpTime, other.EffectProbability = 0.572, 4.2, 0.5
	other.SeverityClass = "II"

	rows := []domain.Record{
		mode,
		mech,
		cause,
		record(t, domain.LevelControl, 6, 3, 3, 3),
		record(t, domain.LevelAction, 6, 3, 3, 3),
		record(t, domain.LevelOpLoad, 6, 3, 1),
		record(t, domain.LevelOpStress, 6, 3, 1, 1),
		record(t, domain.LevelTestMethod, 6, 3, 1, 1),
		other,
		record(t, domain.LevelMechanism, 7, 1),
	}
	for _, rec := range rows {
		_, _, err := svc.Insert(context.Background(), rec)
		require.NoError(t, err, "seed %s %s", rec.Level(), rec.Key())
	}
}

func newService(t *testing.T) *core.Service {
	t.Helper()
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	seedWorksheet(t, svc)
	return svc
}

func loadedManager(t *testing.T, h domain.Hierarchy, gw analysis.Gateway, opts ...analysis.Option) *analysis.Manager {
	t.Helper()
	if h == domain.HierarchyPoF {
		opts = append(opts, analysis.WithMode(6))
	}
	m, err := analysis.NewManager(h, scope, gw, opts...)
	require.NoError(t, err)
	require.NoError(t, m.SelectAll(context.Background()))
	return m
}

func mustPath(t *testing.T, h domain.Hierarchy, raw string) analysis.Path {
	t.Helper()
	p, err := analysis.ParsePath(h, raw)
	require.NoError(t, err)
	return p
}

// flakyGateway fails selected operations for selected keys.
type flakyGateway struct {
	analysis.Gateway
	failDelete map[string]error
	failUpdate map[string]error
}

func (g flakyGateway) Delete(ctx context.Context, level domain.Level, sc domain.Scope, key domain.Key) (domain.Result, error) {
	if err, ok := g.failDelete[key.String()]; ok {
		return domain.Result{}, err
	}
	return g.Gateway.Delete(ctx, level, sc, key)
}

func (g flakyGateway) Update(ctx context.Context, rec domain.Record) (domain.Record, domain.Result, error) {
	if err, ok := g.failUpdate[rec.Key().String()]; ok {
		return nil, domain.Result{}, err
	}
	return g.Gateway.Update(ctx, rec)
}

type observation struct {
	op      string
	success bool
}

type captureMetrics struct {
	mu  sync.Mutex
	obs []observation
}

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	c.obs = append(c.obs, observation{op: op, success: success})
	c.mu.Unlock()
}

type captureTracer struct {
	started []string
	ended   []error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, analysis.TraceSpan) {
	c.started = append(c.started, op)
	return ctx, spanFunc(func(err error) { c.ended = append(c.ended, err) })
}

type spanFunc func(error)

func (f spanFunc) End(err error) { f(err) }

type topicLog struct {
	events []analysis.Event
}

func (l *topicLog) Publish(_ context.Context, ev analysis.Event) {
	l.events = append(l.events, ev)
}

func (l *topicLog) topics() []analysis.Topic {
	out := make([]analysis.Topic, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Topic
	}
	return out
}

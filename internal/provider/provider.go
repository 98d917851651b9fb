package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/dashboard-segments/internal/client"
	"github.com/kjstillabower/dashboard-segments/internal/models"
	"github.com/kjstillabower/dashboard-segments/internal/observability"
	"github.com/kjstillabower/dashboard-segments/internal/traffic"
)

// Source fetches and parses one upstream. Fetch returns either a complete
// snapshot or an error; it never returns partial results on purpose, and any
// gap it does leave is caught by models.NewRecord.
type Source interface {
	Name() string
	Schema() models.Schema
	Fetch(ctx context.Context) (models.Snapshot, error)
}

// RefreshPolicy controls when a cached record is considered stale.
type RefreshPolicy struct {
	// Interval is the minimum time between refreshes.
	Interval time.Duration
	// HardCeiling forces a refresh once the upstream-reported update time of the
	// current record is at least this old, regardless of Interval. Zero disables.
	HardCeiling time.Duration
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock overrides time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithLogger sets the provider logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Provider owns the cached record of one source and decides when to refresh it.
// It is not safe for concurrent use: the render loop drives it one pass at a time.
type Provider struct {
	source Source
	schema models.Schema
	policy RefreshPolicy
	now    func() time.Time
	logger *zap.Logger

	record    models.Record
	hasRecord bool
}

// New creates a Provider with an empty cache. The first GetRenderableRecord call always fetches.
func New(source Source, policy RefreshPolicy, opts ...Option) *Provider {
	p := &Provider{
		source: source,
		schema: source.Schema(),
		policy: policy,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("source", source.Name()))
	return p
}

// Name returns the source name.
func (p *Provider) Name() string { return p.source.Name() }

// Policy returns the refresh policy fixed at construction.
func (p *Provider) Policy() RefreshPolicy { return p.policy }

// Current returns the cached record without refreshing. ok is false before the first refresh.
func (p *Provider) Current() (models.Record, bool) {
	return p.record, p.hasRecord
}

// IsStale reports whether the next GetRenderableRecord call will fetch.
func (p *Provider) IsStale() bool {
	return p.staleAt(p.now())
}

func (p *Provider) staleAt(now time.Time) bool {
	if !p.hasRecord {
		return true
	}
	if now.Sub(p.record.FetchedAt()) >= p.policy.Interval {
		return true
	}
	updated := p.record.UpdatedAt()
	return p.policy.HardCeiling > 0 && !updated.IsZero() && now.Sub(updated) >= p.policy.HardCeiling
}

// GetRenderableRecord returns a complete record, refreshing first when stale.
// A failed refresh yields the all-N/A record; errors never reach the caller.
func (p *Provider) GetRenderableRecord(ctx context.Context) models.Record {
	return p.GetRenderableRecordFunc(ctx, nil)
}

// GetRenderableRecordFunc is GetRenderableRecord with beforeRefresh called
// just before the fetch, when the staleness check decides to refresh.
func (p *Provider) GetRenderableRecordFunc(ctx context.Context, beforeRefresh func()) models.Record {
	now := p.now()
	if !p.staleAt(now) {
		observability.RecordServesTotal.WithLabelValues(p.Name(), "fresh").Inc()
		observability.RecordAgeSeconds.WithLabelValues(p.Name()).Set(now.Sub(p.record.FetchedAt()).Seconds())
		return p.record
	}

	if beforeRefresh != nil {
		beforeRefresh()
	}
	p.record = p.refresh(ctx, now)
	p.hasRecord = true

	state := "refreshed"
	if !p.record.Available() {
		state = "unavailable"
	}
	observability.RecordServesTotal.WithLabelValues(p.Name(), state).Inc()
	observability.RecordAgeSeconds.WithLabelValues(p.Name()).Set(0)
	return p.record
}

// refresh performs exactly one fetch and always returns a full record stamped with now.
func (p *Provider) refresh(ctx context.Context, now time.Time) models.Record {
	start := time.Now()
	snap, err := p.fetch(ctx)
	if err == nil {
		var rec models.Record
		rec, err = models.NewRecord(p.schema, snap, now)
		if err == nil {
			observability.SegmentRefreshesTotal.WithLabelValues(p.Name(), "success").Inc()
			traffic.RecordSuccess(p.Name())
			p.logger.Debug("refresh succeeded",
				zap.Duration("duration", time.Since(start)),
				zap.Time("upstream_updated_at", rec.UpdatedAt()))
			return rec
		}
	}

	observability.SegmentRefreshesTotal.WithLabelValues(p.Name(), "failure").Inc()
	traffic.RecordError(p.Name())
	p.logger.Warn("refresh failed, serving unavailable record",
		zap.String("category", string(client.CategorizeError(err))),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	return models.Unavailable(p.schema, now)
}

// fetch calls the source and converts a parser panic into an error so a broken
// page can never abort the render pass.
func (p *Provider) fetch(ctx context.Context) (snap models.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: parser panic: %v", models.ErrMissingField, r)
		}
	}()
	return p.source.Fetch(ctx)
}

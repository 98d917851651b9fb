// Package runner drives render passes over the configured segments.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/dashboard-segments/internal/display"
	"github.com/kjstillabower/dashboard-segments/internal/observability"
)

// Segment is a renderable dashboard section.
type Segment interface {
	Name() string
	ShowIntro(sink display.Sink)
	Show(ctx context.Context, sink display.Sink)
}

// Runner renders every segment in order, one pass at a time.
type Runner struct {
	segments  []Segment
	sink      display.Sink
	interval  time.Duration
	showIntro bool
	logger    *zap.Logger
	scheduler *gocron.Scheduler

	mu         sync.Mutex
	introShown bool
	passes     int
	stopped    bool
}

// New creates a Runner. Intervals under one second are raised to one second.
func New(segments []Segment, sink display.Sink, interval time.Duration, showIntro bool, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval < time.Second {
		interval = time.Second
	}
	return &Runner{
		segments:  segments,
		sink:      sink,
		interval:  interval,
		showIntro: showIntro,
		logger:    logger,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// RunPass renders all segments once. Intros are shown before the first pass.
// Passes are serialized; a canceled ctx stops the pass between segments but
// never interrupts a segment that has started, so its fetch runs to completion.
// RunPass does nothing after Stop.
func (r *Runner) RunPass(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	start := time.Now()
	logger := r.logger.With(zap.String("pass_id", uuid.New().String()))

	if r.showIntro && !r.introShown {
		for _, seg := range r.segments {
			seg.ShowIntro(r.sink)
		}
		r.sink.Newline()
	}
	r.introShown = true

	for i, seg := range r.segments {
		if ctx.Err() != nil {
			logger.Info("render pass interrupted", zap.Int("rendered", i))
			break
		}
		if i > 0 {
			r.sink.Newline()
		}
		seg.Show(context.WithoutCancel(ctx), r.sink)
	}

	r.passes++
	observability.RenderPassesTotal.Inc()
	observability.RenderPassDurationSeconds.Observe(time.Since(start).Seconds())
	logger.Debug("render pass complete",
		zap.Int("segments", len(r.segments)),
		zap.Duration("duration", time.Since(start)))
}

// Passes returns the number of completed passes.
func (r *Runner) Passes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passes
}

// Start schedules a pass every interval, beginning immediately. A pass still
// running when the next is due is skipped.
func (r *Runner) Start(ctx context.Context) error {
	_, err := r.scheduler.Every(r.interval).SingletonMode().Do(func() {
		r.RunPass(ctx)
	})
	if err != nil {
		return err
	}
	r.scheduler.StartAsync()
	r.logger.Info("render loop started",
		zap.Duration("interval", r.interval),
		zap.Int("segments", len(r.segments)))
	return nil
}

// Stop stops scheduling further passes and waits for a running pass to finish.
func (r *Runner) Stop() {
	r.scheduler.Stop()
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

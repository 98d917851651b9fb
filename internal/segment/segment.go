// Package segment binds a source's provider to its renderer and builds
// configured segments.
package segment

import (
	"context"

	"github.com/kjstillabower/dashboard-segments/internal/display"
	"github.com/kjstillabower/dashboard-segments/internal/models"
	"github.com/kjstillabower/dashboard-segments/internal/provider"
)

// RenderFunc writes a record to a sink.
type RenderFunc func(rec models.Record, s display.Sink)

// Segment is one dashboard section.
type Segment struct {
	name      string
	intro     string
	updateMsg string
	provider  *provider.Provider
	render    RenderFunc
	closer    func() error
}

// New creates a Segment. updateMsg is shown before a refresh when the sink supports it.
func New(p *provider.Provider, intro, updateMsg string, render RenderFunc) *Segment {
	return &Segment{name: p.Name(), intro: intro, updateMsg: updateMsg, provider: p, render: render}
}

// Name returns the source name.
func (s *Segment) Name() string { return s.name }

// Provider returns the segment's provider.
func (s *Segment) Provider() *provider.Provider { return s.provider }

// ShowIntro prints the attribution line.
func (s *Segment) ShowIntro(sink display.Sink) {
	sink.Print(s.intro)
}

// Show refreshes the record when stale and renders it. It never fails; an
// unavailable upstream renders as N/A.
func (s *Segment) Show(ctx context.Context, sink display.Sink) {
	var notify func()
	if s.updateMsg != "" {
		notify = func() { display.NotifyUpdate(sink, s.updateMsg) }
	}
	s.render(s.provider.GetRenderableRecordFunc(ctx, notify), sink)
}

// Close releases the segment's upstream client.
func (s *Segment) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

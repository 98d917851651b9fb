// Package testhelpers holds fakes shared by package tests: a scripted source and a
// recording display sink.
package testhelpers

import (
	"context"
	"time"

	"github.com/kjstillabower/dashboard-segments/internal/models"
)

// StubSource implements provider.Source with a scripted FetchFunc and counts calls.
type StubSource struct {
	SourceName string
	Keys       models.Schema
	FetchFunc  func(ctx context.Context) (models.Snapshot, error)

	calls int
}

// Name implements provider.Source.
func (s *StubSource) Name() string {
	if s.SourceName == "" {
		return "stub"
	}
	return s.SourceName
}

// Schema implements provider.Source.
func (s *StubSource) Schema() models.Schema { return s.Keys }

// Fetch implements provider.Source.
func (s *StubSource) Fetch(ctx context.Context) (models.Snapshot, error) {
	s.calls++
	if s.FetchFunc == nil {
		return models.Snapshot{}, nil
	}
	return s.FetchFunc(ctx)
}

// Calls returns the number of Fetch invocations so far.
func (s *StubSource) Calls() int { return s.calls }

// Fields returns a FetchFunc that always succeeds with the given fields.
func Fields(fields map[string]string) func(context.Context) (models.Snapshot, error) {
	return func(context.Context) (models.Snapshot, error) {
		return models.Snapshot{Fields: fields}, nil
	}
}

// Fail returns a FetchFunc that always fails with err.
func Fail(err error) func(context.Context) (models.Snapshot, error) {
	return func(context.Context) (models.Snapshot, error) {
		return models.Snapshot{}, err
	}
}

// Clock is a manually advanced clock for staleness tests.
type Clock struct {
	T time.Time
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kjstillabower/dashboard-segments/internal/models"
	"github.com/kjstillabower/dashboard-segments/internal/testhelpers"
)

var weatherSchema = models.Schema{"temperature", "conditions"}

func newTestProvider(src *testhelpers.StubSource, policy RefreshPolicy) (*Provider, *testhelpers.Clock) {
	clock := &testhelpers.Clock{T: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(src, policy, WithClock(clock.Now)), clock
}

// TestGetRenderableRecord_IntervalScenario walks the 20 minute interval scenario:
// first call fetches, a call 5 minutes later reuses the cache, a call 25 minutes
// after the first fetches again.
func TestGetRenderableRecord_IntervalScenario(t *testing.T) {
	src := &testhelpers.StubSource{
		Keys:      weatherSchema,
		FetchFunc: testhelpers.Fields(map[string]string{"temperature": "72F", "conditions": "Clear"}),
	}
	p, clock := newTestProvider(src, RefreshPolicy{Interval: 20 * time.Minute})
	ctx := context.Background()

	first := p.GetRenderableRecord(ctx)
	if src.Calls() != 1 {
		t.Fatalf("first call fetches = %d, want 1", src.Calls())
	}
	if first.Field("temperature") != "72F" || first.Field("conditions") != "Clear" {
		t.Errorf("first record = %v, want temperature 72F conditions Clear", first.Fields())
	}

	clock.Advance(5 * time.Minute)
	second := p.GetRenderableRecord(ctx)
	if src.Calls() != 1 {
		t.Errorf("second call fetches = %d, want still 1", src.Calls())
	}
	if !second.FetchedAt().Equal(first.FetchedAt()) || second.Field("temperature") != "72F" {
		t.Error("second call should return the previous record unchanged")
	}

	clock.Advance(20 * time.Minute)
	p.GetRenderableRecord(ctx)
	if src.Calls() != 2 {
		t.Errorf("third call fetches = %d, want 2", src.Calls())
	}
}

// TestGetRenderableRecordFunc_BeforeRefresh verifies the callback runs once,
// ahead of the fetch, and only when the record is refreshed.
func TestGetRenderableRecordFunc_BeforeRefresh(t *testing.T) {
	src := &testhelpers.StubSource{
		Keys:      weatherSchema,
		FetchFunc: testhelpers.Fields(map[string]string{"temperature": "72F", "conditions": "Clear"}),
	}
	p, clock := newTestProvider(src, RefreshPolicy{Interval: 20 * time.Minute})
	ctx := context.Background()

	var fetchesAtNotify []int
	notify := func() { fetchesAtNotify = append(fetchesAtNotify, src.Calls()) }

	p.GetRenderableRecordFunc(ctx, notify)
	clock.Advance(5 * time.Minute)
	p.GetRenderableRecordFunc(ctx, notify)
	if len(fetchesAtNotify) != 1 || fetchesAtNotify[0] != 0 {
		t.Errorf("fetches at notify = %v, want [0]", fetchesAtNotify)
	}

	clock.Advance(15 * time.Minute)
	p.GetRenderableRecordFunc(ctx, notify)
	if len(fetchesAtNotify) != 2 || fetchesAtNotify[1] != 1 || src.Calls() != 2 {
		t.Errorf("fetches at notify = %v, total fetches = %d, want [0 1] and 2", fetchesAtNotify, src.Calls())
	}
}

// TestGetRenderableRecord_ExactIntervalIsStale verifies that elapsed == interval counts as stale.
func TestGetRenderableRecord_ExactIntervalIsStale(t *testing.T) {
	src := &testhelpers.StubSource{Keys: weatherSchema, FetchFunc: testhelpers.Fields(map[string]string{"temperature": "1", "conditions": "x"})}
	p, clock := newTestProvider(src, RefreshPolicy{Interval: 15 * time.Minute})

	p.GetRenderableRecord(context.Background())
	clock.Advance(15 * time.Minute)
	if !p.IsStale() {
		t.Error("IsStale() = false at exactly the interval, want true")
	}
	p.GetRenderableRecord(context.Background())
	if src.Calls() != 2 {
		t.Errorf("fetches = %d, want 2", src.Calls())
	}
}

// TestGetRenderableRecord_FailureYieldsSentinel verifies that a failed fetch
// produces the all-N/A record and no error or panic reaches the caller.
func TestGetRenderableRecord_FailureYieldsSentinel(t *testing.T) {
	src := &testhelpers.StubSource{Keys: weatherSchema, FetchFunc: testhelpers.Fail(errors.New("connection refused"))}
	p, clock := newTestProvider(src, RefreshPolicy{Interval: 20 * time.Minute})

	rec := p.GetRenderableRecord(context.Background())
	if rec.Available() {
		t.Error("Available() = true after failed fetch")
	}
	for _, k := range weatherSchema {
		if got := rec.Field(k); got != models.NotAvailable {
			t.Errorf("Field(%q) = %q, want %q", k, got, models.NotAvailable)
		}
	}
	if !rec.FetchedAt().Equal(clock.T) {
		t.Errorf("FetchedAt() = %v, want %v even on failure", rec.FetchedAt(), clock.T)
	}
}

// TestGetRenderableRecord_FailureRespectsInterval verifies that repeated failures
// do not refetch faster than the interval.
func TestGetRenderableRecord_FailureRespectsInterval(t *testing.T) {
	src := &testhelpers.StubSource{Keys: weatherSchema, FetchFunc: testhelpers.Fail(errors.New("boom"))}
	p, clock := newTestProvider(src, RefreshPolicy{Interval: 20 * time.Minute})
	ctx := context.Background()

	p.GetRenderableRecord(ctx)
	clock.Advance(10 * time.Minute)
	p.GetRenderableRecord(ctx)
	if src.Calls() != 1 {
		t.Errorf("fetches = %d after failure within interval, want 1", src.Calls())
	}
	clock.Advance(10 * time.Minute)
	p.GetRenderableRecord(ctx)
	if src.Calls() != 2 {
		t.Errorf("fetches = %d after interval elapsed, want 2", src.Calls())
	}
}

// TestGetRenderableRecord_RecoversAfterFailure verifies that a later successful
// refresh replaces the sentinel record wholesale.
func TestGetRenderableRecord_RecoversAfterFailure(t *testing.T) {
	fail := true
	src := &testhelpers.StubSource{
		Keys: weatherSchema,
		FetchFunc: func(context.Context) (models.Snapshot, error) {
			if fail {
				return models.Snapshot{}, errors.New("down")
			}
			return models.Snapshot{Fields: map[string]string{"temperature": "60F", "conditions": "Rain"}}, nil
		},
	}
	p, clock := newTestProvider(src, RefreshPolicy{Interval: time.Minute})
	ctx := context.Background()

	if p.GetRenderableRecord(ctx).Available() {
		t.Fatal("first record should be unavailable")
	}
	fail = false
	clock.Advance(time.Minute)
	rec := p.GetRenderableRecord(ctx)
	if !rec.Available() || rec.Field("conditions") != "Rain" {
		t.Errorf("record after recovery = %v, want conditions Rain", rec.Fields())
	}
}

// TestGetRenderableRecord_IncompleteSnapshotIsFailure verifies that a snapshot
// missing a schema key is treated as a failed refresh, never a partial record.
func TestGetRenderableRecord_IncompleteSnapshotIsFailure(t *testing.T) {
	src := &testhelpers.StubSource{Keys: weatherSchema, FetchFunc: testhelpers.Fields(map[string]string{"temperature": "72F"})}
	p, _ := newTestProvider(src, RefreshPolicy{Interval: time.Minute})

	rec := p.GetRenderableRecord(context.Background())
	if rec.Available() {
		t.Fatal("Available() = true for incomplete snapshot")
	}
	if got := rec.Field("temperature"); got != models.NotAvailable {
		t.Errorf("Field(temperature) = %q, want %q (no partial records)", got, models.NotAvailable)
	}
}

// TestGetRenderableRecord_MissingMarkerIsFailure verifies that a parser reporting
// a missing marker element produces the sentinel record.
func TestGetRenderableRecord_MissingMarkerIsFailure(t *testing.T) {
	src := &testhelpers.StubSource{
		Keys:      weatherSchema,
		FetchFunc: testhelpers.Fail(fmt.Errorf("%w: h2.panel-title", models.ErrMissingField)),
	}
	p, _ := newTestProvider(src, RefreshPolicy{Interval: time.Minute})

	if p.GetRenderableRecord(context.Background()).Available() {
		t.Error("Available() = true when marker field is missing")
	}
}

// TestGetRenderableRecord_ParserPanicIsFailure verifies that a panicking parser
// degrades to the sentinel record instead of aborting the render pass.
func TestGetRenderableRecord_ParserPanicIsFailure(t *testing.T) {
	src := &testhelpers.StubSource{
		Keys: weatherSchema,
		FetchFunc: func(context.Context) (models.Snapshot, error) {
			var rows []string
			_ = rows[3]
			return models.Snapshot{}, nil
		},
	}
	p, _ := newTestProvider(src, RefreshPolicy{Interval: time.Minute})

	rec := p.GetRenderableRecord(context.Background())
	if rec.Available() {
		t.Error("Available() = true after parser panic")
	}
}

// TestGetRenderableRecord_HardCeilingForcesRefresh verifies that an upstream
// update time 63 minutes old forces a refresh with a 62 minute ceiling even
// though the local interval has not elapsed.
func TestGetRenderableRecord_HardCeilingForcesRefresh(t *testing.T) {
	clock := &testhelpers.Clock{T: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	src := &testhelpers.StubSource{
		Keys: weatherSchema,
		FetchFunc: func(context.Context) (models.Snapshot, error) {
			return models.Snapshot{
				Fields:    map[string]string{"temperature": "72F", "conditions": "Clear"},
				UpdatedAt: clock.T.Add(-55 * time.Minute),
			}, nil
		},
	}
	p := New(src, RefreshPolicy{Interval: 20 * time.Minute, HardCeiling: 62 * time.Minute}, WithClock(clock.Now))
	ctx := context.Background()

	p.GetRenderableRecord(ctx)
	clock.Advance(5 * time.Minute) // upstream time now 60 minutes old
	p.GetRenderableRecord(ctx)
	if src.Calls() != 1 {
		t.Fatalf("fetches = %d below ceiling, want 1", src.Calls())
	}

	clock.Advance(3 * time.Minute) // upstream time now 63 minutes old, local age 8 minutes
	if !p.IsStale() {
		t.Error("IsStale() = false past hard ceiling, want true")
	}
	p.GetRenderableRecord(ctx)
	if src.Calls() != 2 {
		t.Errorf("fetches = %d past hard ceiling, want 2", src.Calls())
	}
}

// TestGetRenderableRecord_NoCeilingIgnoresUpstreamAge verifies that an old upstream
// update time has no effect when no ceiling is configured.
func TestGetRenderableRecord_NoCeilingIgnoresUpstreamAge(t *testing.T) {
	clock := &testhelpers.Clock{T: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	src := &testhelpers.StubSource{
		Keys: weatherSchema,
		FetchFunc: func(context.Context) (models.Snapshot, error) {
			return models.Snapshot{
				Fields:    map[string]string{"temperature": "72F", "conditions": "Clear"},
				UpdatedAt: clock.T.Add(-5 * time.Hour),
			}, nil
		},
	}
	p := New(src, RefreshPolicy{Interval: 20 * time.Minute}, WithClock(clock.Now))

	p.GetRenderableRecord(context.Background())
	clock.Advance(time.Minute)
	p.GetRenderableRecord(context.Background())
	if src.Calls() != 1 {
		t.Errorf("fetches = %d, want 1 without ceiling", src.Calls())
	}
}

// TestGetRenderableRecord_SentinelDisablesCeiling verifies that the sentinel record,
// which has no upstream time, falls back to the interval alone.
func TestGetRenderableRecord_SentinelDisablesCeiling(t *testing.T) {
	src := &testhelpers.StubSource{Keys: weatherSchema, FetchFunc: testhelpers.Fail(errors.New("down"))}
	p, clock := newTestProvider(src, RefreshPolicy{Interval: 20 * time.Minute, HardCeiling: 62 * time.Minute})

	p.GetRenderableRecord(context.Background())
	clock.Advance(time.Minute)
	if p.IsStale() {
		t.Error("IsStale() = true for fresh sentinel record, want false")
	}
}

// TestGetRenderableRecord_Idempotent verifies that two immediate calls return identical records.
func TestGetRenderableRecord_Idempotent(t *testing.T) {
	src := &testhelpers.StubSource{Keys: weatherSchema, FetchFunc: testhelpers.Fields(map[string]string{"temperature": "72F", "conditions": "Clear"})}
	p, _ := newTestProvider(src, RefreshPolicy{Interval: 20 * time.Minute})

	a := p.GetRenderableRecord(context.Background())
	b := p.GetRenderableRecord(context.Background())
	if fmt.Sprint(a.Fields()) != fmt.Sprint(b.Fields()) || !a.FetchedAt().Equal(b.FetchedAt()) {
		t.Errorf("records differ: %v vs %v", a.Fields(), b.Fields())
	}
	if src.Calls() != 1 {
		t.Errorf("fetches = %d, want 1", src.Calls())
	}
}

// TestProvider_Accessors verifies Name, Policy and Current before and after the first refresh.
func TestProvider_Accessors(t *testing.T) {
	src := &testhelpers.StubSource{SourceName: "nws", Keys: weatherSchema, FetchFunc: testhelpers.Fields(map[string]string{"temperature": "1", "conditions": "x"})}
	policy := RefreshPolicy{Interval: 20 * time.Minute, HardCeiling: 62 * time.Minute}
	p, _ := newTestProvider(src, policy)

	if p.Name() != "nws" {
		t.Errorf("Name() = %q, want nws", p.Name())
	}
	if p.Policy() != policy {
		t.Errorf("Policy() = %+v, want %+v", p.Policy(), policy)
	}
	if _, ok := p.Current(); ok {
		t.Error("Current() ok = true before first refresh")
	}
	if !p.IsStale() {
		t.Error("IsStale() = false before first refresh")
	}
	p.GetRenderableRecord(context.Background())
	if rec, ok := p.Current(); !ok || rec.Field("conditions") != "x" {
		t.Errorf("Current() = %v, %v after refresh", rec.Fields(), ok)
	}
}

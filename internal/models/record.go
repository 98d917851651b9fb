package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NotAvailable is the display value used for every field of an unavailable record.
const NotAvailable = "N/A"

var (
	// ErrMissingField is returned by parsers when a marker or required element is absent
	// from an upstream response (page down, fallback page, changed layout).
	ErrMissingField = errors.New("missing field")

	// ErrIncomplete is returned by NewRecord when a snapshot lacks one or more schema keys.
	ErrIncomplete = errors.New("incomplete snapshot")
)

// Schema is the ordered list of field keys a source always populates.
type Schema []string

// Period is one forecast period as shown on the display.
type Period struct {
	Timeframe string `json:"timeframe"`
	Text      string `json:"text"`
}

// Snapshot is the raw result of a successful fetch-and-parse, before validation.
// UpdatedAt is the upstream-reported update time; zero when the source has none.
type Snapshot struct {
	Fields    map[string]string
	Periods   []Period
	Hazards   []string
	UpdatedAt time.Time
}

// Record is an immutable, fully populated view of one refresh attempt.
// Build it with NewRecord or Unavailable; the zero value is an empty record
// that providers never hand out.
type Record struct {
	fetchedAt time.Time
	updatedAt time.Time
	available bool
	keys      []string
	fields    map[string]string
	periods   []Period
	hazards   []string
}

// NewRecord validates that snap carries every schema key and returns a Record
// owning private copies of its data.
func NewRecord(schema Schema, snap Snapshot, fetchedAt time.Time) (Record, error) {
	var missing []string
	fields := make(map[string]string, len(schema))
	for _, k := range schema {
		v, ok := snap.Fields[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		fields[k] = v
	}
	if len(missing) > 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return Record{
		fetchedAt: fetchedAt,
		updatedAt: snap.UpdatedAt,
		available: true,
		keys:      append([]string(nil), schema...),
		fields:    fields,
		periods:   append([]Period(nil), snap.Periods...),
		hazards:   append([]string(nil), snap.Hazards...),
	}, nil
}

// Unavailable returns the sentinel record: every schema key reads NotAvailable,
// no periods, no hazards, no upstream update time.
func Unavailable(schema Schema, fetchedAt time.Time) Record {
	fields := make(map[string]string, len(schema))
	for _, k := range schema {
		fields[k] = NotAvailable
	}
	return Record{
		fetchedAt: fetchedAt,
		keys:      append([]string(nil), schema...),
		fields:    fields,
	}
}

// FetchedAt returns the time of the refresh attempt that produced the record.
func (r Record) FetchedAt() time.Time { return r.fetchedAt }

// UpdatedAt returns the upstream-reported update time, zero if unknown.
func (r Record) UpdatedAt() time.Time { return r.updatedAt }

// Available reports whether the record holds real upstream values.
func (r Record) Available() bool { return r.available }

// Field returns the display value for key. Keys outside the schema read NotAvailable.
func (r Record) Field(key string) string {
	if v, ok := r.fields[key]; ok {
		return v
	}
	return NotAvailable
}

// Keys returns the schema keys in order.
func (r Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Fields returns a copy of the field mapping.
func (r Record) Fields() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Periods returns a copy of the forecast periods.
func (r Record) Periods() []Period {
	return append([]Period(nil), r.periods...)
}

// Hazards returns a copy of the hazard headlines.
func (r Record) Hazards() []string {
	return append([]string(nil), r.hazards...)
}

package nws

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/dashboard-segments/internal/display"
	"github.com/kjstillabower/dashboard-segments/internal/models"
	"github.com/kjstillabower/dashboard-segments/internal/testhelpers"
)

const fixture = `<html><body>
<div id="current-conditions">
  <h2 class="panel-title">Nashville International Airport (KBNA)</h2>
  <p class="myforecast-current">Fair</p>
  <p class="myforecast-current-lrg">72&deg;F</p>
  <p class="myforecast-current-sm">22&deg;C</p>
  <div id="current_conditions_detail">
  <table>
    <tr><td><b>Humidity</b></td><td>45%</td></tr>
    <tr><td><b>Wind Speed</b></td><td>S 8 mph</td></tr>
    <tr><td><b>Barometer</b></td><td>30.02 in (1016.5 mb)</td></tr>
    <tr><td><b>Dewpoint</b></td><td>58&deg;F (14&deg;C)</td></tr>
    <tr><td><b>Visibility</b></td><td>10.00 mi</td></tr>
    <tr><td><b>Last update</b></td><td>
      1 Mar 3:53 pm CST
    </td></tr>
  </table>
  </div>
</div>
<div id="headline">
  <a class="anchor-hazards" href="#wa"> Wind Advisory </a>
  <a class="anchor-hazards" href="#hwo">Hazardous Weather Outlook</a>
</div>
<ul>
  <li><img class="forecast-icon" src="a.png" alt="Tonight: Clear, with a low around 45."></li>
  <li><img class="forecast-icon" src="b.png" alt="Saturday: Sunny, with a high near 70."></li>
  <li><img class="forecast-icon" src="c.png" alt=""></li>
  <li><img class="forecast-icon" src="d.png" alt="no colon here"></li>
</ul>
</body></html>`

var now = time.Date(2024, 3, 1, 22, 30, 0, 0, time.UTC)

// TestParse_Fixture verifies extraction of all schema fields, periods, hazards and the update time.
func TestParse_Fixture(t *testing.T) {
	snap, err := Parse([]byte(fixture), now)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := map[string]string{
		KeyConditionsLocation: "Nashville International Airport (KBNA)",
		KeyCurrently:          "Fair",
		KeyTempF:              "72°F",
		KeyTempC:              "22°C",
		KeyHumidity:           "45%",
		KeyWindSpeed:          "S 8 mph",
		KeyBarometer:          "30.02 in (1016.5 mb)",
		KeyDewpoint:           "58°F (14°C)",
		KeyVisibility:         "10.00 mi",
		KeyLastUpdate:         "1 Mar 3:53 pm CST",
		KeyComfort:            "Pleasant",
	}
	for k, v := range want {
		if got := snap.Fields[k]; got != v {
			t.Errorf("Fields[%q] = %q, want %q", k, got, v)
		}
	}
	if _, err := models.NewRecord(schema, snap, now); err != nil {
		t.Errorf("snapshot should satisfy schema: %v", err)
	}

	wantUpdated := time.Date(2024, 3, 1, 21, 53, 0, 0, time.UTC)
	if !snap.UpdatedAt.Equal(wantUpdated) {
		t.Errorf("UpdatedAt = %v, want %v", snap.UpdatedAt, wantUpdated)
	}
	if len(snap.Periods) != 2 || snap.Periods[0].Timeframe != "Tonight" || snap.Periods[0].Text != "Clear, with a low around 45." {
		t.Errorf("Periods = %+v", snap.Periods)
	}
	if len(snap.Hazards) != 1 || snap.Hazards[0] != "Wind Advisory" {
		t.Errorf("Hazards = %q, want [Wind Advisory]", snap.Hazards)
	}
}

// TestParse_MissingMarker verifies that a page without the panel title is a missing-field failure.
func TestParse_MissingMarker(t *testing.T) {
	_, err := Parse([]byte(`<html><body><p>Service temporarily unavailable</p></body></html>`), now)
	if !errors.Is(err, models.ErrMissingField) {
		t.Errorf("Parse() error = %v, want ErrMissingField", err)
	}
}

// TestParse_PartialPageIsIncomplete verifies that a page missing a detail row fails record validation.
func TestParse_PartialPageIsIncomplete(t *testing.T) {
	page := strings.Replace(fixture, `<tr><td><b>Barometer</b></td><td>30.02 in (1016.5 mb)</td></tr>`, "", 1)
	snap, err := Parse([]byte(page), now)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := models.NewRecord(schema, snap, now); !errors.Is(err, models.ErrIncomplete) {
		t.Errorf("NewRecord() error = %v, want ErrIncomplete", err)
	}
}

// TestParse_IgnoresCellsOutsideDetailTable verifies that table cells elsewhere
// on the page do not shift the detail label/value pairs.
func TestParse_IgnoresCellsOutsideDetailTable(t *testing.T) {
	page := strings.Replace(fixture, `<div id="current-conditions">`,
		`<table><tr><td>Click here</td></tr></table><div id="current-conditions">`, 1)
	snap, err := Parse([]byte(page), now)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := snap.Fields[KeyHumidity]; got != "45%" {
		t.Errorf("Fields[humidity] = %q, want 45%%", got)
	}
	if _, ok := snap.Fields["click_here"]; ok {
		t.Error("cell outside the detail table should be ignored")
	}
	if _, err := models.NewRecord(schema, snap, now); err != nil {
		t.Errorf("snapshot should satisfy schema: %v", err)
	}
}

// TestComfortFromDewpoint verifies the comfort bands and unparseable input.
func TestComfortFromDewpoint(t *testing.T) {
	tests := map[string]string{
		"49°F (9°C)":   "Dry",
		"50°F":         "Pleasant",
		"60°F":         "Pleasant",
		"65°F":         "A Bit Humid",
		"70°F":         "Humid",
		"75°F":         "Very Humid",
		"76°F (24°C)":  "Oppressive",
		"-5°F (-21°C)": "Dry",
		"NA":           "",
	}
	for in, want := range tests {
		if got := ComfortFromDewpoint(in); got != want {
			t.Errorf("ComfortFromDewpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestParseLastUpdate verifies zone offsets, the year rollback and rejection of bad input.
func TestParseLastUpdate(t *testing.T) {
	got, err := ParseLastUpdate("1 Mar 3:53 pm EDT", now)
	if err != nil {
		t.Fatalf("ParseLastUpdate() error = %v", err)
	}
	if want := time.Date(2024, 3, 1, 19, 53, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ParseLastUpdate(EDT) = %v, want %v", got, want)
	}

	newYear := time.Date(2025, 1, 1, 0, 30, 0, 0, time.UTC)
	got, err = ParseLastUpdate("31 Dec 5:53 pm CST", newYear)
	if err != nil {
		t.Fatalf("ParseLastUpdate() error = %v", err)
	}
	if got.Year() != 2024 {
		t.Errorf("year = %d, want 2024 after rollback", got.Year())
	}

	if _, err := ParseLastUpdate("yesterday", now); err == nil {
		t.Error("ParseLastUpdate(yesterday) error = nil")
	}
}

// TestSource_FetchAndDisplayName verifies the request query, default point and display name fallback.
func TestSource_FetchAndDisplayName(t *testing.T) {
	g := &testhelpers.StaticGetter{Body: []byte(fixture)}
	src := NewSource(g, nil, nil, "")
	src.now = func() time.Time { return now }

	if src.DisplayName() != models.NotAvailable {
		t.Errorf("DisplayName() before fetch = %q", src.DisplayName())
	}
	if _, err := src.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if g.LastPath != "/MapClick.php" || g.LastQuery["lat"] != "36.116453" || g.LastQuery["lon"] != "-86.675228" {
		t.Errorf("request = %s %v", g.LastPath, g.LastQuery)
	}
	if got := src.DisplayName(); got != "Nashville International Airport (KBNA)" {
		t.Errorf("DisplayName() = %q", got)
	}

	lat := 40.0
	named := NewSource(g, &lat, nil, " Home ")
	if la, lo := named.Point(); la != DefaultLat || lo != DefaultLon {
		t.Errorf("Point() with only lat = %v,%v, want defaults", la, lo)
	}
	if named.DisplayName() != "Home" {
		t.Errorf("DisplayName() = %q, want Home", named.DisplayName())
	}
}

// TestRender_Layout verifies the rendered lines for a full record.
func TestRender_Layout(t *testing.T) {
	snap, err := Parse([]byte(fixture), now)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	rec, err := models.NewRecord(schema, snap, now)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	sink := &testhelpers.RecordingSink{}
	Render(rec, "Home", sink, display.Format{ForecastPeriods: 5})

	want := []string{
		"Weather at Home",
		"As of 1 Mar 3:53 pm CST",
		"",
		"!!! Wind Advisory",
		"",
		"    Conditions   Fair",
		"    Temperature  72°F (22°C)",
		"    Wind         S 8 mph",
		"    Visibility   10.00 mi",
		"    Dewpoint     58°F (14°C) Pleasant",
		"",
		"",
		"[*] Extended Forecast",
		"",
		"Tonight",
		"Clear, with a low around 45.",
		"",
		"Saturday",
		"Sunny, with a high near 70.",
	}
	if got := sink.String(); got != strings.Join(want, "\n") {
		t.Errorf("Render() =\n%s\nwant\n%s", got, strings.Join(want, "\n"))
	}
}

// TestRender_Unavailable verifies that the sentinel record renders N/A for every field.
func TestRender_Unavailable(t *testing.T) {
	sink := &testhelpers.RecordingSink{}
	Render(models.Unavailable(schema, now), "Home", sink, display.Format{ForecastPeriods: 5})
	if !sink.Contains("Conditions   N/A") || !sink.Contains("Temperature  N/A (N/A)") || !sink.Contains("Dewpoint     N/A N/A") {
		t.Errorf("output = %s", sink.String())
	}
}

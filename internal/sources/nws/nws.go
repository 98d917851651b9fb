// Package nws scrapes current conditions and the forecast from the
// forecast.weather.gov point forecast page.
package nws

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kjstillabower/dashboard-segments/internal/client"
	"github.com/kjstillabower/dashboard-segments/internal/display"
	"github.com/kjstillabower/dashboard-segments/internal/models"
	"github.com/kjstillabower/dashboard-segments/internal/scrape"
)

const (
	Name           = "nws"
	DefaultBaseURL = "https://forecast.weather.gov"
	DefaultRefresh = 20 * time.Minute
	// DefaultHardCeiling refreshes once the page's "last update" is a bit over an hour old.
	DefaultHardCeiling = 62 * time.Minute
	DefaultLat         = 36.116453
	DefaultLon         = -86.675228
	UpdateMessage      = "Checking for Weather Updates"
	Intro              = "Weather provided by weather.gov"

	hazardOutlook = "Hazardous Weather Outlook"
)

// Record field keys.
const (
	KeyConditionsLocation = "conditions_location"
	KeyCurrently          = "currently"
	KeyTempF              = "temp_f"
	KeyTempC              = "temp_c"
	KeyHumidity           = "humidity"
	KeyWindSpeed          = "wind_speed"
	KeyBarometer          = "barometer"
	KeyDewpoint           = "dewpoint"
	KeyVisibility         = "visibility"
	KeyLastUpdate         = "last_update"
	KeyComfort            = "comfort"
)

var schema = models.Schema{
	KeyConditionsLocation, KeyCurrently, KeyTempF, KeyTempC, KeyHumidity, KeyWindSpeed,
	KeyBarometer, KeyDewpoint, KeyVisibility, KeyLastUpdate, KeyComfort,
}

// Source fetches the point forecast page for one lat/lon.
type Source struct {
	getter   client.Getter
	lat, lon float64
	location string
	now      func() time.Time

	mu          sync.Mutex
	pageLocName string
}

// NewSource creates a Source. A nil lat or lon selects the default point for
// both. location overrides the display name; when blank the page's own
// conditions location is shown.
func NewSource(getter client.Getter, lat, lon *float64, location string) *Source {
	s := &Source{getter: getter, lat: DefaultLat, lon: DefaultLon, location: strings.TrimSpace(location), now: time.Now}
	if lat != nil && lon != nil {
		s.lat, s.lon = *lat, *lon
	}
	return s
}

func (s *Source) Name() string { return Name }

func (s *Source) Schema() models.Schema { return schema }

// Point returns the configured latitude and longitude.
func (s *Source) Point() (lat, lon float64) { return s.lat, s.lon }

// DisplayName returns the configured location, else the last conditions
// location seen on the page, else N/A.
func (s *Source) DisplayName() string {
	if s.location != "" {
		return s.location
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pageLocName != "" {
		return s.pageLocName
	}
	return models.NotAvailable
}

// Fetch implements provider.Source.
func (s *Source) Fetch(ctx context.Context) (models.Snapshot, error) {
	body, err := s.getter.Get(ctx, "/MapClick.php", map[string]string{
		"lat": strconv.FormatFloat(s.lat, 'f', -1, 64),
		"lon": strconv.FormatFloat(s.lon, 'f', -1, 64),
	})
	if err != nil {
		return models.Snapshot{}, err
	}
	snap, err := Parse(body, s.now())
	if err != nil {
		return models.Snapshot{}, err
	}
	s.mu.Lock()
	s.pageLocName = snap.Fields[KeyConditionsLocation]
	s.mu.Unlock()
	return snap, nil
}

// Parse extracts a snapshot from the point forecast page. now anchors the
// year of the "last update" stamp, which the page prints without one.
func Parse(body []byte, now time.Time) (models.Snapshot, error) {
	doc, err := scrape.Parse(body)
	if err != nil {
		return models.Snapshot{}, err
	}
	// The panel title is absent on outage and fallback pages.
	title := doc.Find("h2.panel-title").First()
	if title.Length() == 0 {
		return models.Snapshot{}, fmt.Errorf("%w: h2.panel-title", models.ErrMissingField)
	}

	fields := map[string]string{
		KeyConditionsLocation: display.CleanChars(title.Text()),
	}
	setText := func(key, selector string) {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			fields[key] = display.CleanChars(sel.Text())
		}
	}
	setText(KeyCurrently, "p.myforecast-current")
	setText(KeyTempF, "p.myforecast-current-lrg")
	setText(KeyTempC, "p.myforecast-current-sm")

	// Detail stats are label/value cell pairs in the conditions detail table.
	cells := doc.Find("#current_conditions_detail td")
	for i := 0; i+1 < cells.Length(); i += 2 {
		key := strings.ReplaceAll(strings.ToLower(display.CleanChars(cells.Eq(i).Text())), " ", "_")
		if key == "" {
			continue
		}
		fields[key] = display.CleanChars(cells.Eq(i + 1).Text())
	}

	snap := models.Snapshot{Fields: fields}
	if dp, ok := fields[KeyDewpoint]; ok {
		fields[KeyComfort] = ComfortFromDewpoint(dp)
	}
	if lu, ok := fields[KeyLastUpdate]; ok {
		if t, err := ParseLastUpdate(lu, now); err == nil {
			snap.UpdatedAt = t
		}
	}

	doc.Find("img.forecast-icon").Each(func(_ int, img *goquery.Selection) {
		alt := img.AttrOr("alt", "")
		timeframe, text, ok := strings.Cut(alt, ":")
		if !ok || strings.TrimSpace(alt) == "" {
			return
		}
		snap.Periods = append(snap.Periods, models.Period{
			Timeframe: display.CleanChars(timeframe),
			Text:      display.CleanChars(text),
		})
	})

	doc.Find("a.anchor-hazards").Each(func(_ int, a *goquery.Selection) {
		h := display.CleanChars(scrape.FirstText(a))
		if h == "" || h == hazardOutlook {
			return
		}
		snap.Hazards = append(snap.Hazards, h)
	})
	return snap, nil
}

// ComfortFromDewpoint describes how humid a dewpoint such as "55°F (13°C)"
// feels. Unparseable values give "".
func ComfortFromDewpoint(dewpoint string) string {
	f, _, ok := strings.Cut(dewpoint, "F")
	if !ok {
		return ""
	}
	f = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(f), "°º"))
	dp, err := strconv.Atoi(f)
	if err != nil {
		return ""
	}
	switch {
	case dp < 50:
		return "Dry"
	case dp <= 60:
		return "Pleasant"
	case dp <= 65:
		return "A Bit Humid"
	case dp <= 70:
		return "Humid"
	case dp <= 75:
		return "Very Humid"
	default:
		return "Oppressive"
	}
}

var zoneOffsets = map[string]int{
	"EST": -5, "CST": -6, "MST": -7, "PST": -8, "AKST": -9, "HST": -10,
	"EDT": -4, "CDT": -5, "MDT": -6, "PDT": -7, "AKDT": -8, "HDT": -9,
}

// ParseLastUpdate parses stamps like "1 Mar 3:53 pm CST". The year is taken
// from now and stepped back one when that would put the stamp in the future.
// Unknown zone abbreviations are read in time.Local.
func ParseLastUpdate(s string, now time.Time) (time.Time, error) {
	parts := strings.Fields(s)
	if len(parts) < 4 {
		return time.Time{}, fmt.Errorf("parse last update %q: too few fields", s)
	}
	loc := time.Local
	if off, ok := zoneOffsets[strings.ToUpper(parts[len(parts)-1])]; ok {
		loc = time.FixedZone(strings.ToUpper(parts[len(parts)-1]), off*3600)
		parts = parts[:len(parts)-1]
	} else if len(parts) == 5 {
		parts = parts[:4]
	}
	if len(parts) != 4 {
		return time.Time{}, fmt.Errorf("parse last update %q: unexpected layout", s)
	}
	parts[3] = strings.ToUpper(parts[3])
	const layout = "2006 2 Jan 3:04 PM"
	value := strings.Join(parts, " ")

	year := now.Year()
	t, err := time.ParseInLocation(layout, fmt.Sprintf("%d %s", year, value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last update %q: %w", s, err)
	}
	if t.After(now.Add(time.Hour)) {
		t = t.AddDate(-1, 0, 0)
	}
	return t, nil
}

// Package metoffice reads the UK Met Office DataPoint 3-hourly site forecast.
package metoffice

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/dashboard-segments/internal/client"
	"github.com/kjstillabower/dashboard-segments/internal/models"
)

const (
	Name           = "metoffice"
	DefaultBaseURL = "http://datapoint.metoffice.gov.uk"
	DefaultRefresh = 20 * time.Minute
	UpdateMessage  = "Checking for Weather Updates"
	Intro          = "Weather provided by metoffice.gov.uk"
)

// Record field keys.
const (
	KeyTemperature   = "Temperature"
	KeyFeelsLike     = "Feels Like"
	KeyWeatherType   = "Weather Type"
	KeyPrecipitation = "Precipitation Probability"
	KeyWindSpeed     = "Wind Speed"
	KeyWindGust      = "Wind Gust"
	KeyWindDirection = "Wind Direction"
	KeyHumidity      = "Humidity"
	KeyVisibility    = "Visibility"
	KeyMaxUV         = "Max UV"
	KeyIssued        = "Issued"
)

var schema = models.Schema{
	KeyTemperature, KeyFeelsLike, KeyWeatherType, KeyPrecipitation, KeyWindSpeed,
	KeyWindGust, KeyWindDirection, KeyHumidity, KeyVisibility, KeyMaxUV, KeyIssued,
}

// Location is a DataPoint forecast site.
type Location struct {
	Name string
	ID   string
}

var locations = []Location{
	{Name: "Durham", ID: "351290"},
	{Name: "Sutton", ID: "353773"},
	{Name: "London", ID: "352409"},
}

// DefaultLocation is used when no location or an unknown one is configured.
var DefaultLocation = Location{Name: "London", ID: "352409"}

// ResolveLocation looks up a site by name, case-insensitively. Unknown or
// empty names resolve to DefaultLocation.
func ResolveLocation(name string) Location {
	name = strings.TrimSpace(name)
	for _, l := range locations {
		if strings.EqualFold(l.Name, name) {
			return l
		}
	}
	return DefaultLocation
}

// Source fetches and parses the DataPoint forecast for one site.
type Source struct {
	getter   client.Getter
	location Location
	apiKey   string
}

// NewSource creates a Source for the named location.
func NewSource(getter client.Getter, location, apiKey string) *Source {
	return &Source{getter: getter, location: ResolveLocation(location), apiKey: apiKey}
}

func (s *Source) Name() string { return Name }

func (s *Source) Schema() models.Schema { return schema }

// Location returns the resolved forecast site.
func (s *Source) Location() Location { return s.location }

// Fetch implements provider.Source.
func (s *Source) Fetch(ctx context.Context) (models.Snapshot, error) {
	if s.apiKey == "" {
		return models.Snapshot{}, fmt.Errorf("%w: datapoint api key not configured", client.ErrUnauthorized)
	}
	body, err := s.getter.Get(ctx, "/public/data/val/wxfcs/all/json/"+s.location.ID, map[string]string{
		"res": "3hourly",
		"key": s.apiKey,
	})
	if err != nil {
		return models.Snapshot{}, err
	}
	return Parse(body)
}

type siteRep struct {
	SiteRep struct {
		DV struct {
			DataDate string    `json:"dataDate"`
			Location *location `json:"Location"`
		} `json:"DV"`
	} `json:"SiteRep"`
}

type location struct {
	Name   string   `json:"name"`
	Period []period `json:"Period"`
}

type period struct {
	Value string `json:"value"`
	Rep   []rep  `json:"Rep"`
}

type rep struct {
	D       string `json:"D"`
	F       string `json:"F"`
	G       string `json:"G"`
	H       string `json:"H"`
	Pp      string `json:"Pp"`
	S       string `json:"S"`
	T       string `json:"T"`
	V       string `json:"V"`
	W       string `json:"W"`
	U       string `json:"U"`
	Minutes string `json:"$"`
}

// Parse extracts a snapshot from a DataPoint JSON response. The first report
// of the first day is the current conditions; every later report becomes a
// forecast period.
func Parse(body []byte) (models.Snapshot, error) {
	var doc siteRep
	if err := json.Unmarshal(body, &doc); err != nil {
		return models.Snapshot{}, fmt.Errorf("parse datapoint response: %w", err)
	}
	loc := doc.SiteRep.DV.Location
	if loc == nil {
		return models.Snapshot{}, fmt.Errorf("%w: SiteRep.DV.Location", models.ErrMissingField)
	}
	if len(loc.Period) == 0 || len(loc.Period[0].Rep) == 0 {
		return models.Snapshot{}, fmt.Errorf("%w: Location.Period.Rep", models.ErrMissingField)
	}

	today := loc.Period[0]
	cur := today.Rep[0]
	maxUV := -1
	for _, r := range today.Rep {
		if u, err := strconv.Atoi(r.U); err == nil && u > maxUV {
			maxUV = u
		}
	}
	uv := models.NotAvailable
	if maxUV >= 0 {
		uv = fmt.Sprintf("%d - %s", maxUV, UVBand(maxUV))
	}

	snap := models.Snapshot{
		Fields: map[string]string{
			KeyTemperature:   withUnit(cur.T, "C"),
			KeyFeelsLike:     withUnit(cur.F, "C"),
			KeyWeatherType:   WeatherType(cur.W),
			KeyPrecipitation: withUnit(cur.Pp, "%"),
			KeyWindSpeed:     withUnit(cur.S, " mph"),
			KeyWindGust:      withUnit(cur.G, " mph"),
			KeyWindDirection: orNA(cur.D),
			KeyHumidity:      withUnit(cur.H, "%"),
			KeyVisibility:    Visibility(cur.V),
			KeyMaxUV:         uv,
			KeyIssued:        models.NotAvailable,
		},
	}
	if issued, err := time.Parse(time.RFC3339, doc.SiteRep.DV.DataDate); err == nil {
		snap.UpdatedAt = issued
		snap.Fields[KeyIssued] = issued.Format("Mon 15:04 MST")
	}

	first := true
	for _, p := range loc.Period {
		day, dayErr := time.Parse("2006-01-02Z", p.Value)
		for _, r := range p.Rep {
			if first {
				first = false
				continue
			}
			timeframe := p.Value
			if mins, err := strconv.Atoi(r.Minutes); err == nil && dayErr == nil {
				timeframe = day.Add(time.Duration(mins) * time.Minute).Format("Mon 15:04")
			}
			snap.Periods = append(snap.Periods, models.Period{
				Timeframe: timeframe,
				Text: fmt.Sprintf("%s, %s, rain %s",
					WeatherType(r.W), withUnit(r.T, "C"), withUnit(r.Pp, "%")),
			})
		}
	}
	return snap, nil
}

func withUnit(v, unit string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return models.NotAvailable
	}
	return v + unit
}

func orNA(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return models.NotAvailable
	}
	return v
}

package segment

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/dashboard-segments/internal/client"
	"github.com/kjstillabower/dashboard-segments/internal/display"
	"github.com/kjstillabower/dashboard-segments/internal/models"
	"github.com/kjstillabower/dashboard-segments/internal/provider"
	"github.com/kjstillabower/dashboard-segments/internal/sources/metoffice"
	"github.com/kjstillabower/dashboard-segments/internal/sources/nws"
	"github.com/kjstillabower/dashboard-segments/internal/sources/yahoo"
)

// ErrUnknownType is returned by Build for an unsupported segment type.
var ErrUnknownType = errors.New("unknown segment type")

// Spec describes one configured segment.
type Spec struct {
	Type    string
	Refresh time.Duration
	// HardCeiling nil keeps the source default; zero disables.
	HardCeiling *time.Duration
	Lat, Lon    *float64
	Location    string
	// ForecastPeriods nil means display.DefaultForecastPeriods.
	ForecastPeriods *int
	BaseURL         string
	APIKey          string
}

func (s Spec) format() display.Format {
	f := display.Format{ForecastPeriods: display.DefaultForecastPeriods}
	if s.ForecastPeriods != nil {
		f.ForecastPeriods = *s.ForecastPeriods
	}
	return f
}

func (s Spec) policy(defRefresh, defCeiling time.Duration) provider.RefreshPolicy {
	p := provider.RefreshPolicy{Interval: defRefresh, HardCeiling: defCeiling}
	if s.Refresh > 0 {
		p.Interval = s.Refresh
	}
	if s.HardCeiling != nil {
		p.HardCeiling = *s.HardCeiling
	}
	return p
}

func baseURL(configured, def string) string {
	if configured != "" {
		return configured
	}
	return def
}

// Build creates the segment described by spec with its own HTTP client.
func Build(spec Spec, httpCfg client.Config, logger *zap.Logger, opts ...provider.Option) (*Segment, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]provider.Option{provider.WithLogger(logger)}, opts...)
	f := spec.format()

	var seg *Segment
	var c *client.HTTPClient
	switch spec.Type {
	case metoffice.Name:
		httpCfg.Accept = "application/json"
		c = client.New(metoffice.Name, baseURL(spec.BaseURL, metoffice.DefaultBaseURL), httpCfg, logger)
		src := metoffice.NewSource(c, spec.Location, spec.APIKey)
		name := src.Location().Name
		p := provider.New(src, spec.policy(metoffice.DefaultRefresh, 0), opts...)
		seg = New(p, metoffice.Intro, metoffice.UpdateMessage, func(rec models.Record, s display.Sink) {
			metoffice.Render(rec, name, s, f)
		})
	case nws.Name:
		c = client.New(nws.Name, baseURL(spec.BaseURL, nws.DefaultBaseURL), httpCfg, logger)
		src := nws.NewSource(c, spec.Lat, spec.Lon, spec.Location)
		p := provider.New(src, spec.policy(nws.DefaultRefresh, nws.DefaultHardCeiling), opts...)
		seg = New(p, nws.Intro, nws.UpdateMessage, func(rec models.Record, s display.Sink) {
			nws.Render(rec, src.DisplayName(), s, f)
		})
	case yahoo.Name:
		c = client.New(yahoo.Name, baseURL(spec.BaseURL, yahoo.DefaultBaseURL), httpCfg, logger)
		p := provider.New(yahoo.NewSource(c), spec.policy(yahoo.DefaultRefresh, 0), opts...)
		seg = New(p, yahoo.Intro, yahoo.UpdateMessage, yahoo.Render)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, spec.Type)
	}
	seg.closer = c.Close
	return seg, nil
}

// BuildAll builds every spec in order. On error, already built segments are closed.
func BuildAll(specs []Spec, httpCfg client.Config, logger *zap.Logger, opts ...provider.Option) ([]*Segment, error) {
	segs := make([]*Segment, 0, len(specs))
	for i, spec := range specs {
		seg, err := Build(spec, httpCfg, logger, opts...)
		if err != nil {
			for _, s := range segs {
				_ = s.Close()
			}
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

package nws

import (
	"fmt"

	"github.com/kjstillabower/dashboard-segments/internal/display"
	"github.com/kjstillabower/dashboard-segments/internal/models"
)

// Render writes conditions, hazard headlines and forecast periods.
func Render(rec models.Record, name string, s display.Sink, f display.Format) {
	s.Print("Weather at " + name)
	s.Print("As of " + rec.Field(KeyLastUpdate))
	for _, h := range rec.Hazards() {
		s.Newline()
		s.Print("!!! " + h)
	}
	s.Newline()
	s.Print(fmt.Sprintf("    Conditions   %s", rec.Field(KeyCurrently)))
	s.Print(fmt.Sprintf("    Temperature  %s (%s)", rec.Field(KeyTempF), rec.Field(KeyTempC)))
	s.Print(fmt.Sprintf("    Wind         %s", rec.Field(KeyWindSpeed)))
	s.Print(fmt.Sprintf("    Visibility   %s", rec.Field(KeyVisibility)))
	s.Print(fmt.Sprintf("    Dewpoint     %s %s", rec.Field(KeyDewpoint), rec.Field(KeyComfort)))
	display.RenderPeriods(s, rec.Periods(), f)
}

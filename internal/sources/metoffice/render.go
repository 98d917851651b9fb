package metoffice

import (
	"fmt"

	"github.com/kjstillabower/dashboard-segments/internal/display"
	"github.com/kjstillabower/dashboard-segments/internal/models"
)

// Render writes the current conditions for location followed by forecast periods.
func Render(rec models.Record, location string, s display.Sink, f display.Format) {
	s.Print("Weather at " + location)
	s.Print("As of " + rec.Field(KeyIssued))
	s.Newline()
	s.Print(fmt.Sprintf("    Conditions   %s", rec.Field(KeyWeatherType)))
	s.Print(fmt.Sprintf("    Temperature  %s (feels like %s)", rec.Field(KeyTemperature), rec.Field(KeyFeelsLike)))
	s.Print(fmt.Sprintf("    Rain         %s", rec.Field(KeyPrecipitation)))
	s.Print(fmt.Sprintf("    Wind         %s %s, gusts %s", rec.Field(KeyWindDirection), rec.Field(KeyWindSpeed), rec.Field(KeyWindGust)))
	s.Print(fmt.Sprintf("    Humidity     %s", rec.Field(KeyHumidity)))
	s.Print(fmt.Sprintf("    Visibility   %s", rec.Field(KeyVisibility)))
	s.Print(fmt.Sprintf("    Max UV       %s", rec.Field(KeyMaxUV)))
	display.RenderPeriods(s, rec.Periods(), f)
}

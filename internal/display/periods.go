package display

import "github.com/kjstillabower/dashboard-segments/internal/models"

// RenderPeriods writes up to f.ForecastPeriods forecast periods. With two or
// more periods shown they get an "Extended Forecast" header and each period is
// labelled with its timeframe; a single period is printed as bare text.
func RenderPeriods(s Sink, periods []models.Period, f Format) {
	n := f.PeriodsToShow(len(periods))
	if n == 0 {
		return
	}
	s.Newline()
	if n > 1 {
		s.Newline()
		s.PrintHeader("Extended Forecast", '*')
	}
	for _, p := range periods[:n] {
		s.Newline()
		if n > 1 {
			s.Print(p.Timeframe)
		}
		s.Print(p.Text)
	}
}

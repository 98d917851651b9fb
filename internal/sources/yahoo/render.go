package yahoo

import (
	"fmt"
	"strings"

	"github.com/kjstillabower/dashboard-segments/internal/display"
	"github.com/kjstillabower/dashboard-segments/internal/models"
)

// Render writes the index table. A "closed" market message replaces the
// "As of" line.
func Render(rec models.Record, s display.Sink) {
	s.PrintHeader("Stocks", '$')
	s.Newline()

	if msg := rec.Field(KeyMarketMessage); strings.Contains(strings.ToUpper(msg), "CLOSED") {
		s.Print(msg)
	} else {
		s.Print("As of " + display.FormatTimeText(rec.FetchedAt()))
	}

	for _, idx := range Indexes {
		s.Newline()
		s.Print(fmt.Sprintf("    %-9s  %9s", idx.Name, rec.Field(FieldKey(idx.Symbol, "price"))))
		s.Print(fmt.Sprintf("               %9s  %s", rec.Field(FieldKey(idx.Symbol, "delta")), rec.Field(FieldKey(idx.Symbol, "delta_pct"))))
	}
}

// Package yahoo scrapes major index quotes from the finance.yahoo.com front page.
package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kjstillabower/dashboard-segments/internal/client"
	"github.com/kjstillabower/dashboard-segments/internal/display"
	"github.com/kjstillabower/dashboard-segments/internal/models"
	"github.com/kjstillabower/dashboard-segments/internal/scrape"
)

const (
	Name           = "yahoo"
	DefaultBaseURL = "https://finance.yahoo.com"
	DefaultRefresh = 15 * time.Minute
	UpdateMessage  = "Updating Financial Data"
	Intro          = "Financial info from finance.yahoo.com"

	KeyMarketMessage = "market_message"
)

// Index is a tracked market index.
type Index struct {
	Symbol string
	Name   string
}

// Indexes are shown in this order.
var Indexes = []Index{
	{Symbol: "^GSPC", Name: "S&P 500"},
	{Symbol: "^DJI", Name: "Dow Jones"},
	{Symbol: "^IXIC", Name: "NASDAQ"},
	{Symbol: "^RUT", Name: "Russell"},
}

var streamerFields = map[string]string{
	"regularMarketPrice":         "price",
	"regularMarketChange":        "delta",
	"regularMarketChangePercent": "delta_pct",
}

// FieldKey returns the record key for one quote field of symbol.
func FieldKey(symbol, field string) string {
	return symbol + "." + field
}

var schema = func() models.Schema {
	s := models.Schema{KeyMarketMessage}
	for _, idx := range Indexes {
		s = append(s, FieldKey(idx.Symbol, "price"), FieldKey(idx.Symbol, "delta"), FieldKey(idx.Symbol, "delta_pct"))
	}
	return s
}()

// Source fetches the finance front page.
type Source struct {
	getter client.Getter
}

// NewSource creates a Source.
func NewSource(getter client.Getter) *Source {
	return &Source{getter: getter}
}

func (s *Source) Name() string { return Name }

func (s *Source) Schema() models.Schema { return schema }

// Fetch implements provider.Source.
func (s *Source) Fetch(ctx context.Context) (models.Snapshot, error) {
	body, err := s.getter.Get(ctx, "/", nil)
	if err != nil {
		return models.Snapshot{}, err
	}
	return Parse(body)
}

// Parse extracts quotes for the tracked indexes and the market status
// message. Quotes for other symbols are ignored.
func Parse(body []byte) (models.Snapshot, error) {
	doc, err := scrape.Parse(body)
	if err != nil {
		return models.Snapshot{}, err
	}
	streamers := doc.Find("fin-streamer[data-symbol][data-field]")
	if streamers.Length() == 0 {
		return models.Snapshot{}, fmt.Errorf("%w: fin-streamer", models.ErrMissingField)
	}

	tracked := make(map[string]bool, len(Indexes))
	for _, idx := range Indexes {
		tracked[idx.Symbol] = true
	}

	fields := map[string]string{KeyMarketMessage: ""}
	if msg := doc.Find("span[data-id=mk-msg]").First(); msg.Length() > 0 {
		fields[KeyMarketMessage] = display.CleanChars(msg.Text())
	}
	streamers.Each(func(_ int, s *goquery.Selection) {
		symbol := s.AttrOr("data-symbol", "")
		if !tracked[symbol] {
			return
		}
		name, ok := streamerFields[s.AttrOr("data-field", "")]
		if !ok {
			return
		}
		// The first streamer for a symbol and field wins; later duplicates are tickers.
		key := FieldKey(symbol, name)
		if _, seen := fields[key]; seen {
			return
		}
		if v := display.CleanChars(scrape.FirstText(s)); v != "" {
			fields[key] = v
		}
	})
	return models.Snapshot{Fields: fields}, nil
}

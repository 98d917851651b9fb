// Package scrape loads pages into goquery documents.
package scrape

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Parse parses an HTML document.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// FirstText returns the first non-blank text node below the first element of
// sel, which is how headline links and streamer values carry their text.
// Markup nested after it, such as a trailing badge, is ignored.
func FirstText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return firstText(sel.Get(0))
}

func firstText(n *html.Node) string {
	if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
		return n.Data
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := firstText(c); t != "" {
			return t
		}
	}
	return ""
}

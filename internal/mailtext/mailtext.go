package mailtext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var richPolicy = bluemonday.UGCPolicy()

// Extract converts an HTML email body into readable plain text: scripts,
// styles and hidden preheader junk are dropped, block elements become line
// breaks, and runs of whitespace collapse.
func Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head, noscript").Remove()

	doc.Find("br, p, div, tr, li, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return collapse(doc.Text()), nil
}

// Sanitize strips unsafe markup from an HTML body before it is stored or
// cached. Layout survives; scripts and event handlers do not.
func Sanitize(html string) string {
	return richPolicy.Sanitize(html)
}

func collapse(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

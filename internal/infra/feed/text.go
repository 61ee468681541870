package feed

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// blockElements end a line of text when rendered.
const blockElements = "p, div, br, li, h1, h2, h3, h4, h5, h6, section, article, blockquote, tr"

// PlainText converts an HTML fragment to readable text. Scripts and styles
// are dropped, block elements become line breaks and runs of spaces collapse.
// Input that fails to parse is returned with whitespace collapsed.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapseSpaces(html)
	}
	doc.Find("script, style, noscript, template").Remove()
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = collapseSpaces(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Preview returns the first n runes of the plain text of html, followed by
// "..." when it was cut.
func Preview(html string, n int) string {
	text := strings.Join(strings.Fields(PlainText(html)), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// strippedTags are the elements whose content never contributes visible page
// text. Extending this set changes the output for every indexed page.
const strippedTags = "script, style, noscript, iframe, header, footer, svg, meta, link"

// Clean parses HTML permissively, removes non-content elements, and returns
// the visible text with all whitespace runs collapsed to single spaces.
// Malformed markup does not fail; empty or whitespace-only input yields "".
func Clean(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		// The underlying parser never errors on malformed markup, only on
		// reader failures, which cannot happen with a strings.Reader.
		return ""
	}

	doc.Find(strippedTags).Remove()

	var b strings.Builder
	for _, node := range doc.Selection.Nodes {
		collectText(node, &b)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// collectText appends every text node under n, separated by spaces so that
// text from adjacent elements does not run together.
func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

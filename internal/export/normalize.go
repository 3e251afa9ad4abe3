package export

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	htmlTag    = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(\s[^<>]*)?/?>`)
	lineBreak  = regexp.MustCompile(`(?i)<br\s*/?>`)
	blankLines = regexp.MustCompile(`\n[ \t]*\n(\s*\n)*`)
)

// Normalize prepares generator prose for classification: line endings become
// LF, stray HTML is reduced to its text, and runs of blank lines collapse to
// one blank line.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if htmlTag.MatchString(text) {
		text = stripHTML(text)
	}
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// stripHTML keeps the text of an HTML fragment, turning block elements and
// line breaks into newlines and list items into bullet lines.
func stripHTML(text string) string {
	text = lineBreak.ReplaceAllString(text, "\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return htmlTag.ReplaceAllString(text, "")
	}
	doc.Find("script, style").Remove()

	// Innermost elements first, so flattening a parent keeps the
	// separators already added to its children.
	blocks := doc.Find("li, p, div, h1, h2, h3, h4, h5, h6, ul, ol, section")
	for i := blocks.Length() - 1; i >= 0; i-- {
		sel := blocks.Eq(i)
		if goquery.NodeName(sel) == "li" {
			sel.SetText("• " + strings.TrimSpace(sel.Text()) + "\n")
			continue
		}
		sel.SetText(sel.Text() + "\n\n")
	}
	return doc.Find("body").Text()
}

// cleanHeading removes markdown heading and emphasis markers.
func cleanHeading(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#")
	line = strings.TrimSpace(line)
	for _, marker := range []string{"**", "__"} {
		if strings.HasPrefix(line, marker) && strings.HasSuffix(line, marker) && len(line) > 2*len(marker) {
			line = line[len(marker) : len(line)-len(marker)]
		}
	}
	line = strings.TrimSpace(line)
	return strings.TrimSuffix(line, ":")
}

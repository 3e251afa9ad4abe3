// Package export turns the narrative report into a PDF document and
// publishes it.
//
// Block classification is a best-effort heuristic over free-form prose. A
// block that is neither a heading nor a bullet list is kept as body text, so
// no content is dropped.
package export

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/interview-coach/internal/rendering"
)

// MaxHeadingLength is the exclusive upper bound on heading length in characters.
const MaxHeadingLength = 60

var bulletMarkers = []string{"•", "- ", "* ", "– "}

// minor words may stay lower-case inside a title-cased heading.
var minorWords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "but": true,
	"by": true, "for": true, "from": true, "in": true, "nor": true, "of": true,
	"on": true, "or": true, "per": true, "the": true, "to": true, "vs": true,
	"via": true, "with": true,
}

// Classify splits normalized narrative text on blank lines and classifies
// each block.
func Classify(text string) []rendering.Block {
	var blocks []rendering.Block
	for _, raw := range strings.Split(text, "\n\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		blocks = append(blocks, classifyBlock(raw))
	}
	if blocks == nil {
		blocks = []rendering.Block{}
	}
	return blocks
}

func classifyBlock(raw string) rendering.Block {
	lines := strings.Split(raw, "\n")

	if len(lines) == 1 {
		if heading := cleanHeading(lines[0]); isHeading(heading) {
			return rendering.Block{Kind: rendering.BlockHeading, Text: heading}
		}
	}

	if _, ok := trimBullet(lines[0]); ok {
		return rendering.Block{Kind: rendering.BlockBullets, Items: bulletItems(lines)}
	}

	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return rendering.Block{Kind: rendering.BlockBody, Text: strings.Join(lines, "\n")}
}

func isHeading(line string) bool {
	if line == "" || utf8.RuneCountInString(line) >= MaxHeadingLength {
		return false
	}
	if strings.HasSuffix(line, ".") {
		return false
	}
	if _, ok := trimBullet(line); ok {
		return false
	}
	return isTitleCase(line)
}

// isTitleCase requires the first word and every non-minor word to start with
// an upper-case letter. Words that start with a digit or symbol are ignored.
func isTitleCase(line string) bool {
	words := strings.Fields(line)
	for i, w := range words {
		first, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsLetter(first) {
			continue
		}
		if unicode.IsUpper(first) {
			continue
		}
		if i > 0 && minorWords[strings.ToLower(w)] {
			continue
		}
		return false
	}
	return len(words) > 0
}

func trimBullet(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(trimmed, marker) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, marker)), true
		}
	}
	return trimmed, false
}

// bulletItems starts a new item at every marker line and appends unmarked
// lines to the item before them.
func bulletItems(lines []string) []string {
	var items []string
	for _, line := range lines {
		text, marked := trimBullet(line)
		if text == "" {
			continue
		}
		if marked || len(items) == 0 {
			items = append(items, text)
			continue
		}
		items[len(items)-1] += " " + text
	}
	return items
}

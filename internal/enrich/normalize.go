// Package enrich derives conversational metadata from a raw message and its
// transport envelope, normalizes message text, and builds the enhanced text
// representation handed to the embedding model.
package enrich

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxNormalizedLength keeps cleaned text under the embedding token budget.
const maxNormalizedLength = 6000

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeText trims the message, collapses whitespace runs to single
// spaces and truncates over-long content with an ellipsis suffix.
func NormalizeText(text string) string {
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")

	if len(text) > maxNormalizedLength {
		text = text[:maxNormalizedLength] + "..."
	}

	return text
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldAccents strips combining marks so French keywords match their
// accentless spellings ("négociable" vs "negociable").
func FoldAccents(text string) string {
	folded, _, err := transform.String(accentFolder, text)
	if err != nil {
		return text
	}

	return folded
}

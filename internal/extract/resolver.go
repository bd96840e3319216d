package extract

import (
	"regexp"
	"strings"

	"github.com/lmartins/quizchain/internal/htmldoc"
)

var (
	submitURLRe = regexp.MustCompile(`(?i)https?://[^\s'"<>]*submit[^\s'"<>]*`)
	anyURLRe    = regexp.MustCompile(`https?://[^\s'"<>]+`)
)

// ResolveSubmitURL locates the grading endpoint for a page, by priority:
// first hyperlink whose href contains "submit", then a "submit" URL in the
// visible text, then any URL in the visible text. Empty when nothing matches.
func ResolveSubmitURL(doc *htmldoc.Document) string {
	for _, link := range doc.Links() {
		if strings.Contains(strings.ToLower(link.Href), "submit") {
			return link.Href
		}
	}
	text := doc.Text()
	if m := submitURLRe.FindString(text); m != "" {
		return m
	}
	return anyURLRe.FindString(text)
}

// FindAnyURL scans the leading scanLimit characters of text for a URL-shaped
// substring. Used as the next-URL fallback when a page has no submit target.
func FindAnyURL(text string, scanLimit int) string {
	if scanLimit > 0 && len(text) > scanLimit {
		text = text[:scanLimit]
	}
	return anyURLRe.FindString(text)
}

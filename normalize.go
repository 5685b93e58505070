package pdfhtml

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// artifactReplacer maps encoding artifacts left by the extraction (cp1252
// control points, typographic quotes, soft hyphens) to plain forms.
var artifactReplacer = strings.NewReplacer(
	"\u00ad", " ",
	"\u0097", " -- ",
	"\u2014", " -- ",
	"\u0091", "'",
	"\u0092", "'",
	"\u2018", "'",
	"\u2019", "'",
	"\u0093", `"`,
	"\u0094", `"`,
	"\u201c", `"`,
	"\u201d", `"`,
	"\u0082", ", ",
	"\u201a", ", ",
	"\u00a0", " ",
	// Ligatures
	"\ufb00", "ff",
	"\ufb01", "fi",
	"\ufb02", "fl",
	"\ufb03", "ffi",
	"\ufb04", "ffl",
	"\ufb05", "ft",
	"\ufb06", "st",
)

var (
	spacedLettersRe   = regexp.MustCompile(`\b(?:[A-Za-z]\s){4,}[A-Za-z]\b`)
	spacedTitleCaseRe = regexp.MustCompile(`^[A-Z](?:\s[a-z]){2,3}$`)
	spacedDigitsRe    = regexp.MustCompile(`\b(?:\d\s)+\d\b`)
	hyphenDigitRe     = regexp.MustCompile(`-\s+(\d)`)
	whitespaceRe      = regexp.MustCompile(`\s+`)
)

// NormalizeText cleans raw span text. Encoding artifacts are replaced,
// letter-spaced words of five or more letters ("S T R E N G T H") and
// digit runs ("1 9 9 2") are closed up, range markers lose the space after
// the hyphen, and whitespace is collapsed. Shorter letter runs such as
// "I a m" are left alone.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFC.String(text)
	text = artifactReplacer.Replace(text)
	text = spacedLettersRe.ReplaceAllStringFunc(text, removeWhitespace)
	text = spacedDigitsRe.ReplaceAllStringFunc(text, removeWhitespace)
	text = hyphenDigitRe.ReplaceAllString(text, "-$1")

	return collapseWhitespace(text)
}

// normalizeHeadingText normalizes text that carries the heading color
// signal. Letter-spaced display faces leave short title-case runs behind
// ("M u l"); those are closed up only when they make up the whole text.
func normalizeHeadingText(text string) string {
	text = NormalizeText(text)
	if spacedTitleCaseRe.MatchString(text) {
		return removeWhitespace(text)
	}
	return text
}

func removeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

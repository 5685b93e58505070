package pdfhtml

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var dehyphenateRe = regexp.MustCompile(`- ([a-z])`)

// MergeFragments splices line-wrap hyphenation. A fragment ending in a
// single hyphen is joined directly to the next fragment when that one
// starts with a lowercase letter ("opti-", "cal" gives "optical"). Any other
// trailing hyphen is kept as written and JoinFragments puts a space after
// it ("re-", "Entry" joins to "re- Entry").
func MergeFragments(fragments []string) []string {
	merged := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		if fragment == "" {
			continue
		}

		if n := len(merged); n > 0 {
			prev := merged[n-1]
			if endsWithWrapHyphen(prev) && startsLower(fragment) {
				merged[n-1] = strings.TrimSuffix(strings.TrimRight(prev, " "), "-") + strings.TrimLeft(fragment, " ")
				continue
			}
		}

		merged = append(merged, fragment)
	}
	return merged
}

// JoinFragments joins fragments with single spaces, leaving the space out
// where punctuation or brackets make it wrong.
func JoinFragments(fragments []string) string {
	var sb strings.Builder
	for _, fragment := range fragments {
		if fragment == "" {
			continue
		}
		if sb.Len() > 0 && needsSpace(sb.String(), fragment) {
			sb.WriteByte(' ')
		}
		sb.WriteString(fragment)
	}
	return collapseWhitespace(sb.String())
}

// DehyphenateText closes up "- x" where x is lowercase. It is safe to run
// on rendered HTML.
func DehyphenateText(text string) string {
	return dehyphenateRe.ReplaceAllString(text, "$1")
}

func endsWithWrapHyphen(s string) bool {
	s = strings.TrimRight(s, " ")
	return strings.HasSuffix(s, "-") && !strings.HasSuffix(s, "--")
}

func startsLower(s string) bool {
	s = strings.TrimLeft(s, " ")
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsLower(r)
}

func needsSpace(current, next string) bool {
	for _, suffix := range []string{"--", "(", "[", "{", "\u2014"} {
		if strings.HasSuffix(current, suffix) {
			return false
		}
	}
	last, _ := utf8.DecodeLastRuneInString(current)
	if unicode.IsSpace(last) {
		return false
	}

	first, _ := utf8.DecodeRuneInString(next)
	if unicode.IsSpace(first) {
		return false
	}
	return !strings.ContainsRune(",.;:?!')", first)
}

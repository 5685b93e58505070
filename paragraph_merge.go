package pdfhtml

import (
	"bytes"
	"math"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FragmentKind identifies a rendered unit of page output.
type FragmentKind int

const (
	FragmentRaw FragmentKind = iota
	FragmentParagraph
	FragmentHeading
	FragmentTable
	FragmentListItem
)

// Fragment is one rendered element in reading order.
type Fragment struct {
	Kind FragmentKind
	HTML string

	// Plain is the normalized text of a paragraph.
	Plain string

	// Center is the horizontal center of the source content; HasCenter is
	// false for fragments parsed back from HTML.
	Center    float64
	HasCenter bool

	ForceBreak bool

	// Rich is set when the paragraph carries inline markup.
	Rich bool
}

// newParagraph builds a paragraph fragment from already rendered inner HTML.
func newParagraph(inner, plain string, center float64, forceBreak bool) Fragment {
	return Fragment{
		Kind:       FragmentParagraph,
		HTML:       paragraphHTML(inner, forceBreak),
		Plain:      plain,
		Center:     center,
		HasCenter:  true,
		ForceBreak: forceBreak,
		Rich:       strings.Contains(inner, "<"),
	}
}

func paragraphHTML(inner string, forceBreak bool) string {
	if forceBreak {
		return `<p data-force-break="true">` + inner + "</p>"
	}
	return "<p>" + inner + "</p>"
}

func (f Fragment) isBlank() bool {
	return f.Kind == FragmentRaw && strings.TrimSpace(f.HTML) == ""
}

// mergeRule selects which continuation tests a merge pass applies.
type mergeRule struct {
	// shortFragmentWords enables merging a short paragraph after one with no
	// terminal punctuation. Zero disables it.
	shortFragmentWords int

	// centerTolerance bounds the horizontal distance between merged
	// paragraphs. Infinity disables the check.
	centerTolerance float64

	// requireOpenEnd refuses to merge after terminal punctuation.
	requireOpenEnd bool
}

func pageMergeRule(settings LayoutSettings) mergeRule {
	return mergeRule{
		shortFragmentWords: settings.ShortFragmentWords,
		centerTolerance:    settings.MergeCenterTolerance,
	}
}

// MergeParagraphs joins paragraphs split across blocks, columns, or pages.
// A paragraph is folded into the nearest preceding paragraph (looking back
// over whitespace only) when it starts lowercase, or when it is a short
// fragment after a paragraph without terminal punctuation. Merging is
// refused when the previous paragraph ends with a colon, the current one
// carries a forced break, either side holds inline markup or is not a
// plain paragraph, or the horizontal centers are further apart than
// settings.MergeCenterTolerance.
//
// The input is not modified. Applying MergeParagraphs to its own output
// returns it unchanged.
func MergeParagraphs(fragments []Fragment, settings LayoutSettings) []Fragment {
	return mergeParagraphs(fragments, pageMergeRule(settings))
}

func mergeParagraphs(fragments []Fragment, rule mergeRule) []Fragment {
	out := make([]Fragment, 0, len(fragments))
	for _, current := range fragments {
		if current.Kind == FragmentParagraph {
			if idx := previousParagraph(out); idx >= 0 && rule.canMerge(out[idx], current) {
				out[idx] = mergeParagraphPair(out[idx], current)
				continue
			}
		}
		out = append(out, current)
	}
	return out
}

func previousParagraph(fragments []Fragment) int {
	for i := len(fragments) - 1; i >= 0; i-- {
		switch {
		case fragments[i].Kind == FragmentParagraph:
			return i
		case fragments[i].isBlank():
			continue
		default:
			return -1
		}
	}
	return -1
}

func (r mergeRule) canMerge(prev, current Fragment) bool {
	if prev.Plain == "" || current.Plain == "" {
		return false
	}
	if current.ForceBreak || prev.Rich || current.Rich {
		return false
	}
	if strings.HasSuffix(prev.Plain, ":") {
		return false
	}
	if r.requireOpenEnd && endsWithTerminal(prev.Plain) {
		return false
	}
	if prev.HasCenter && current.HasCenter && math.Abs(prev.Center-current.Center) > r.centerTolerance {
		return false
	}

	if startsLower(current.Plain) {
		return true
	}
	return r.shortFragmentWords > 0 &&
		!endsWithTerminal(prev.Plain) &&
		len(strings.Fields(current.Plain)) < r.shortFragmentWords
}

func mergeParagraphPair(prev, current Fragment) Fragment {
	plain := JoinFragments(MergeFragments([]string{prev.Plain, current.Plain}))
	merged := prev
	merged.Plain = plain
	merged.HTML = paragraphHTML(html.EscapeString(plain), prev.ForceBreak)
	return merged
}

func endsWithTerminal(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return strings.ContainsRune(".!?;:", rune(s[len(s)-1]))
}

// MergeParagraphHTML runs the paragraph merge pass over an HTML string.
// Content between paragraphs is kept byte for byte.
func MergeParagraphHTML(fragment string, settings LayoutSettings) string {
	if !strings.Contains(fragment, "<p") {
		return fragment
	}
	return RenderFragments(MergeParagraphs(ParseFragments(fragment), settings))
}

// ParseFragments splits HTML into paragraph fragments and raw runs between
// them. Paragraph text is unescaped and trimmed; a paragraph is rich when
// it contains any nested element.
func ParseFragments(s string) []Fragment {
	var (
		fragments []Fragment
		raw       bytes.Buffer
		para      bytes.Buffer
		text      strings.Builder
		inPara    bool
		rich      bool
		force     bool
	)

	flushRaw := func() {
		if raw.Len() > 0 {
			fragments = append(fragments, Fragment{Kind: FragmentRaw, HTML: raw.String()})
			raw.Reset()
		}
	}

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tokenRaw := z.Raw()

		if !inPara {
			if tt == html.StartTagToken {
				name, hasAttr := z.TagName()
				if atom.Lookup(name) == atom.P {
					flushRaw()
					inPara, rich, force = true, false, false
					para.Reset()
					text.Reset()
					para.Write(tokenRaw)
					for hasAttr {
						var key, val []byte
						key, val, hasAttr = z.TagAttr()
						if string(key) == "data-force-break" && string(val) == "true" {
							force = true
						}
					}
					continue
				}
			}
			raw.Write(tokenRaw)
			continue
		}

		para.Write(tokenRaw)
		switch tt {
		case html.TextToken:
			text.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			rich = true
		case html.EndTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.P {
				fragments = append(fragments, Fragment{
					Kind:       FragmentParagraph,
					HTML:       para.String(),
					Plain:      strings.TrimSpace(text.String()),
					ForceBreak: force,
					Rich:       rich,
				})
				inPara = false
			}
		}
	}

	if inPara {
		raw.Write(para.Bytes())
	}
	flushRaw()
	return fragments
}

// RenderFragments serializes fragments, wrapping runs of list items in a
// list container.
func RenderFragments(fragments []Fragment) string {
	var sb strings.Builder
	inList := false
	for _, f := range fragments {
		if f.Kind == FragmentListItem && !inList {
			sb.WriteString(`<ul class="spell-list">`)
			inList = true
		} else if f.Kind != FragmentListItem && inList {
			sb.WriteString("</ul>")
			inList = false
		}
		sb.WriteString(f.HTML)
	}
	if inList {
		sb.WriteString("</ul>")
	}
	return sb.String()
}

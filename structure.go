package pdfhtml

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	pageArtifactRe = regexp.MustCompile(`^(?:[0-9 ]+|[IVXLCDM ]+|\d+\s+[IVXLCDM]+)$`)
	listBulletRe   = regexp.MustCompile(`^[•◦▪▫*→-]\s*`)
)

// paragraphEntry is one rendered line waiting to be joined into a paragraph.
type paragraphEntry struct {
	html    string
	plain   string
	heading bool
	center  float64
}

type paragraph struct {
	entries []paragraphEntry
	center  float64
}

func newParagraphGroup(entries []paragraphEntry) paragraph {
	p := paragraph{entries: entries}
	var sum float64
	for _, e := range entries {
		sum += e.center
	}
	if len(entries) > 0 {
		p.center = sum / float64(len(entries))
	}
	return p
}

func (p paragraph) isHeading() bool {
	return len(p.entries) == 1 && p.entries[0].heading
}

// renderBlock turns one block into fragments according to its hints.
func renderBlock(block Block, hints blockHints, cfg Config) []Fragment {
	var fragments []Fragment

	switch {
	case block.Kind != BlockText:
		// Only attached tables are rendered for non-text blocks.
	case hints.heading != nil:
		text := hints.heading.Text
		if text == "" {
			text = blockPlainText(block, cfg.Layout)
		}
		if text != "" {
			fragments = append(fragments, Fragment{
				Kind:  FragmentHeading,
				HTML:  renderHeading(hints.heading.Level, text),
				Plain: text,
			})
		}
	case hints.listItem:
		text := listBulletRe.ReplaceAllString(blockPlainText(block, cfg.Layout), "")
		if text != "" {
			fragments = append(fragments, Fragment{
				Kind:  FragmentListItem,
				HTML:  `<li class="spell-list-item">` + html.EscapeString(text) + "</li>",
				Plain: text,
			})
		}
	default:
		fragments = assembleParagraphs(block, hints, cfg)
	}

	for _, attached := range hints.tables {
		if tableHTML := RenderTable(attached.Table, cfg.TableClass); tableHTML != "" {
			fragments = append(fragments, Fragment{Kind: FragmentTable, HTML: tableHTML})
		}
	}
	return fragments
}

func blockPlainText(block Block, settings LayoutSettings) string {
	lines := MergeLines(block.Lines, settings)
	plains := make([]string, 0, len(lines))
	for _, line := range lines {
		plains = append(plains, linePlainText(line))
	}
	return JoinFragments(MergeFragments(plains))
}

// assembleParagraphs groups a text block's lines into paragraphs.
//
// Lines are merged and split into columns, then each column is cut into
// paragraphs wherever the vertical gap clearly exceeds the column's median
// line spacing, a break prefix or forced line break appears, or a colored
// heading line stands alone. The first paragraph of a later column is
// appended to the last paragraph of the nearest earlier column when it
// reads as a continuation.
func assembleParagraphs(block Block, hints blockHints, cfg Config) []Fragment {
	settings := cfg.Layout

	lines := block.Lines
	if hints.keepHeading {
		lines = make([]Line, len(block.Lines))
		for i, line := range block.Lines {
			line.KeepHeading = true
			lines[i] = line
		}
	}

	merged := MergeLines(lines, settings)
	if len(merged) == 0 {
		return nil
	}

	var groups [][]Line
	if hints.columnAssigned {
		groups = [][]Line{merged}
	} else {
		groups = SplitLinesByColumn(merged, settings)
	}

	var (
		paragraphs []paragraph
		runs       []columnRun
	)
	for _, column := range groups {
		columnParagraphs := columnParagraphs(column, cfg)
		if len(columnParagraphs) == 0 {
			continue
		}

		run := columnRun{center: linesCenter(column), last: -1}
		if len(paragraphs) > 0 && continuesAcrossColumn(columnParagraphs[0], hints, cfg.BreakPrefixes) {
			first := columnParagraphs[0]
			if target := continuationTarget(runs, first.center, settings.ContinuationRadius); target >= 0 {
				paragraphs[target].entries = append(paragraphs[target].entries, first.entries...)
				columnParagraphs = columnParagraphs[1:]
				run.last = target
			}
		}

		for _, para := range columnParagraphs {
			paragraphs = append(paragraphs, para)
			if !para.isHeading() {
				run.last = len(paragraphs) - 1
			}
		}
		runs = append(runs, run)
	}

	fragments := make([]Fragment, 0, len(paragraphs))
	for i, para := range paragraphs {
		forceBreak := hints.forceBreak && i == 0

		if para.isHeading() {
			entry := para.entries[0]
			fragments = append(fragments, Fragment{
				Kind:       FragmentHeading,
				HTML:       paragraphHTML(entry.html, forceBreak),
				Plain:      entry.plain,
				Center:     para.center,
				HasCenter:  true,
				ForceBreak: forceBreak,
			})
			continue
		}

		htmlParts := make([]string, 0, len(para.entries))
		plainParts := make([]string, 0, len(para.entries))
		for _, entry := range para.entries {
			htmlParts = append(htmlParts, entry.html)
			if entry.plain != "" {
				plainParts = append(plainParts, entry.plain)
			}
		}

		plain := DehyphenateText(strings.Join(plainParts, " "))
		if plain == "" {
			continue
		}
		inner := DehyphenateText(strings.Join(htmlParts, " "))
		fragments = append(fragments, newParagraph(inner, plain, para.center, forceBreak))
	}

	// Inside one block only lowercase continuations of open sentences merge.
	return mergeParagraphs(fragments, mergeRule{
		centerTolerance: math.Inf(1),
		requireOpenEnd:  true,
	})
}

// columnParagraphs cuts one column's lines into paragraphs.
func columnParagraphs(lines []Line, cfg Config) []paragraph {
	settings := cfg.Layout

	var gaps []float64
	for i := 1; i < len(lines); i++ {
		if delta := lines[i].Box.Y0 - lines[i-1].Box.Y0; delta > settings.MinLineGap {
			gaps = append(gaps, delta)
		}
	}
	baseGap := calculateMedian(gaps)

	var (
		out     []paragraph
		current []paragraphEntry
	)
	closeCurrent := func() {
		if len(current) > 0 {
			out = append(out, newParagraphGroup(current))
			current = nil
		}
	}

	for i, line := range lines {
		plain := linePlainText(line)
		if plain == "" {
			closeCurrent()
			continue
		}
		if isPageArtifact(plain) {
			continue
		}
		lineHTML := renderLine(line)
		if lineHTML == "" {
			continue
		}

		startNew := false
		if len(gaps) > 0 && i > 0 {
			if delta := line.Box.Y0 - lines[i-1].Box.Y0; delta > baseGap+settings.ParagraphGapSlack {
				startNew = true
			}
		}
		if startNew || line.ForceLineBreak || hasBreakPrefix(plain, cfg.BreakPrefixes) {
			closeCurrent()
		}

		entry := paragraphEntry{
			html:   lineHTML,
			plain:  plain,
			center: line.Box.CenterX(),
		}

		if isHeadingLine(line) && (line.splitHeading || !strings.HasSuffix(plain, ":")) {
			closeCurrent()
			entry.heading = true
			out = append(out, newParagraphGroup([]paragraphEntry{entry}))
			continue
		}

		current = append(current, entry)
	}
	closeCurrent()

	return out
}

// isHeadingLine reports whether every span carrying text is colored.
func isHeadingLine(line Line) bool {
	withText := 0
	for _, span := range line.Spans {
		if span.Text == "" {
			continue
		}
		withText++
		if span.HasDefaultColor() {
			return false
		}
	}
	return withText > 0
}

// isPageArtifact matches page numbers and short running-head debris such
// as "38", "3 8", "IV" or "4 I".
func isPageArtifact(plain string) bool {
	if len(plain) <= 3 && isAllDigits(plain) {
		return true
	}
	return len(plain) <= 4 && pageArtifactRe.MatchString(plain)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasBreakPrefix(plain string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(plain, prefix) {
			return true
		}
	}
	return false
}

func continuesAcrossColumn(first paragraph, hints blockHints, prefixes []string) bool {
	if len(first.entries) == 0 || hints.forceBreak {
		return false
	}
	entry := first.entries[0]
	return !entry.heading && startsLower(entry.plain) && !hasBreakPrefix(entry.plain, prefixes)
}

// columnRun records where one column's paragraphs ended up.
type columnRun struct {
	center float64
	last   int // index of the column's last non-heading paragraph, or -1
}

func linesCenter(lines []Line) float64 {
	var sum float64
	for _, line := range lines {
		sum += line.Box.CenterX()
	}
	return sum / float64(len(lines))
}

// continuationTarget returns the last closed paragraph of the earlier
// column whose center is nearest, preferring columns within radius. Ties
// go to the later column. It returns -1 when no earlier column has a
// paragraph to continue.
func continuationTarget(runs []columnRun, center, radius float64) int {
	target := -1
	best := math.Inf(1)
	bestWithin := false
	for _, run := range runs {
		if run.last < 0 {
			continue
		}
		d := math.Abs(run.center - center)
		within := d <= radius
		if (within && !bestWithin) || (within == bestWithin && d <= best) {
			target, best, bestWithin = run.last, d, within
		}
	}
	return target
}

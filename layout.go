package pdfhtml

import (
	"math"
	"slices"
	"strings"
	"unicode/utf8"
)

// wordLine is a row of words sharing a baseline, before styling is
// resolved into spans.
type wordLine struct {
	words []EnrichedWord
	box   Rect
}

func newWordLine(words []EnrichedWord) wordLine {
	l := wordLine{words: words}
	for i, w := range words {
		if i == 0 {
			l.box = w.Box
			continue
		}
		l.box = mergeRects(l.box, w.Box)
	}
	return l
}

func (l wordLine) fontSize() float64 {
	if len(l.words) == 0 {
		return 12
	}
	var total float64
	for _, w := range l.words {
		total += w.FontSize
	}
	return total / float64(len(l.words))
}

// groupWordsIntoLines groups words into visual rows. Words are ordered by
// vertical overlap and then x; a word joins the current row when its
// vertical center is within the average height of the row's center, or its
// baseline is close to the row's running baseline.
func groupWordsIntoLines(words []EnrichedWord) []wordLine {
	if len(words) == 0 {
		return nil
	}

	sorted := slices.Clone(words)
	slices.SortStableFunc(sorted, func(a, b EnrichedWord) int {
		overlap := math.Min(a.Box.Y1, b.Box.Y1) - math.Max(a.Box.Y0, b.Box.Y0)
		if overlap > math.Min(a.Box.Height(), b.Box.Height())*0.3 {
			return compareFloat(a.Box.X0, b.Box.X0)
		}
		return compareFloat(a.Box.Y0, b.Box.Y0)
	})

	var (
		lines    []wordLine
		current  []EnrichedWord
		lineBox  Rect
		baseline float64
	)
	for _, word := range sorted {
		wordBaseline := calculateBaseline(word)
		if len(current) > 0 {
			centerDistance := math.Abs(word.Box.CenterY() - lineBox.CenterY())
			avgHeight := (lineBox.Height() + word.Box.Height()) / 2
			threshold := 0.6 * calculateXHeight(word)
			if threshold == 0 {
				threshold = 5.0
			}
			if centerDistance < avgHeight*0.5 || math.Abs(wordBaseline-baseline) < threshold {
				current = append(current, word)
				lineBox = mergeRects(lineBox, word.Box)
				baseline = (baseline*float64(len(current)-1) + wordBaseline) / float64(len(current))
				continue
			}
			lines = append(lines, finishWordLine(current))
		}
		current = []EnrichedWord{word}
		lineBox = word.Box
		baseline = wordBaseline
	}
	if len(current) > 0 {
		lines = append(lines, finishWordLine(current))
	}
	return lines
}

func finishWordLine(words []EnrichedWord) wordLine {
	slices.SortStableFunc(words, func(a, b EnrichedWord) int {
		return compareFloat(a.Box.X0, b.Box.X0)
	})
	return newWordLine(words)
}

// splitAtGutters cuts a row wherever the horizontal gap between words is
// wider than gutterRatio times the font size, separating text that sits
// side by side in different columns.
func splitAtGutters(line wordLine, gutterRatio float64) []wordLine {
	if len(line.words) < 2 {
		return []wordLine{line}
	}

	var out []wordLine
	start := 0
	for i := 1; i < len(line.words); i++ {
		prev, cur := line.words[i-1], line.words[i]
		size := math.Max(prev.FontSize, cur.FontSize)
		if size <= 0 {
			size = 12
		}
		if cur.Box.X0-prev.Box.X1 > size*gutterRatio {
			out = append(out, newWordLine(line.words[start:i]))
			start = i
		}
	}
	return append(out, newWordLine(line.words[start:]))
}

// blockThreshold derives the paragraph break threshold from the gaps
// between consecutive lines, as a multiple of the median font size.
func blockThreshold(lines []wordLine) float64 {
	if len(lines) < 3 {
		return 0.9
	}

	var gaps, sizes []float64
	for i := 0; i+1 < len(lines); i++ {
		gaps = append(gaps, lines[i+1].box.Y0-lines[i].box.Y1)
		sizes = append(sizes, lines[i].fontSize())
	}

	medianSize := calculateMedian(sizes)
	if medianSize == 0 {
		medianSize = 12
	}
	return clamp((calculateMedian(gaps)+1.5*calculateStdDev(gaps))/medianSize, 0.6, 1.5)
}

type blockBuilder struct {
	lines []wordLine
	box   Rect
}

func (b *blockBuilder) add(line wordLine) {
	if len(b.lines) == 0 {
		b.box = line.box
	} else {
		b.box = mergeRects(b.box, line.box)
	}
	b.lines = append(b.lines, line)
}

func (b *blockBuilder) fontSize() float64 {
	var total float64
	for _, l := range b.lines {
		total += l.fontSize()
	}
	return total / float64(len(b.lines))
}

// accepts reports whether line continues the block: it must overlap the
// block horizontally, sit within the vertical threshold below it, keep
// roughly the same font size, and not open a list item.
func (b *blockBuilder) accepts(line wordLine, threshold float64) bool {
	last := b.lines[len(b.lines)-1]
	if line.box.X1 <= b.box.X0 || line.box.X0 >= b.box.X1 {
		return false
	}

	size := b.fontSize()
	if size <= 0 {
		size = 12
	}
	gap := line.box.Y0 - last.box.Y1
	if gap/size > threshold || gap < -last.box.Height() {
		return false
	}

	ratio := line.fontSize() / size
	if ratio < 0.8 || ratio > 1.2 {
		return false
	}
	return len(line.words) == 0 || !line.words[0].IsBulletOrNumber()
}

// buildBlocks groups lines into text blocks. Each line joins the most
// recent open block it continues; otherwise it opens a new one.
func buildBlocks(lines []wordLine) []Block {
	sorted := slices.Clone(lines)
	slices.SortStableFunc(sorted, func(a, b wordLine) int {
		if c := compareFloat(a.box.Y0, b.box.Y0); c != 0 {
			return c
		}
		return compareFloat(a.box.X0, b.box.X0)
	})
	threshold := blockThreshold(sorted)

	var builders []*blockBuilder
	for _, line := range sorted {
		var target *blockBuilder
		for i := len(builders) - 1; i >= 0; i-- {
			if builders[i].accepts(line, threshold) {
				target = builders[i]
				break
			}
		}
		if target == nil {
			target = &blockBuilder{}
			builders = append(builders, target)
		}
		target.add(line)
	}

	blocks := make([]Block, 0, len(builders))
	for _, b := range builders {
		blocks = append(blocks, b.block())
	}
	return blocks
}

func (b *blockBuilder) block() Block {
	block := Block{Kind: BlockText, Box: b.box}
	for _, line := range b.lines {
		block.Lines = append(block.Lines, lineFromWords(line))
	}
	if len(b.lines) > 0 && len(b.lines[0].words) > 0 && isBulletGlyph(b.lines[0].words[0].Text) {
		block = block.WithHint(ListItem{})
	}
	return block
}

func isBulletGlyph(text string) bool {
	r, _ := utf8.DecodeRuneInString(text)
	return strings.ContainsRune("•◦▪▫→", r)
}

// wordStyle is the part of a word's appearance that spans preserve.
type wordStyle struct {
	font  string
	flags int
	color string
	size  float64
}

func styleOf(w EnrichedWord) wordStyle {
	flags := 0
	if w.IsBold {
		flags |= FlagBold
	}
	if w.IsItalic {
		flags |= FlagItalic
	}
	if w.FontFlags&pdfFontFixedPitch != 0 {
		flags |= FlagMonospace
	}
	if w.FontFlags&pdfFontSerif != 0 {
		flags |= FlagSerif
	}
	return wordStyle{
		font:  w.FontName,
		flags: flags,
		color: w.FillColor.Hex(),
		size:  math.Round(w.FontSize*2) / 2,
	}
}

// lineFromWords turns a row of words into a line of styled spans. Runs of
// words with the same style share a span. Words further apart than a
// fraction of the font size are separated by a space, which opens the
// next span when a style change falls there.
func lineFromWords(line wordLine) Line {
	out := Line{Box: line.box}

	var (
		sb    strings.Builder
		style wordStyle
	)
	flush := func() {
		if sb.Len() == 0 {
			return
		}
		out.Spans = append(out.Spans, Span{
			Text:  sb.String(),
			Font:  style.font,
			Flags: style.flags,
			Color: style.color,
			Size:  style.size,
		})
		sb.Reset()
	}

	for i, word := range line.words {
		ws := styleOf(word)
		space := i > 0 && wordsSpaced(line.words[i-1], word)
		if i > 0 && ws != style {
			flush()
		}
		if space {
			sb.WriteByte(' ')
		}
		style = ws
		sb.WriteString(word.Text)
	}
	flush()
	return out
}

func wordsSpaced(prev, next EnrichedWord) bool {
	size := math.Max(prev.FontSize, next.FontSize)
	// Stacked words in vertical text are separated by their y gap.
	gap := math.Max(next.Box.X0-prev.Box.X1, next.Box.Y0-prev.Box.Y1)
	return gap > math.Max(1.0, size*0.15)
}

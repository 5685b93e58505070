package pdfhtml

import (
	"math"
	"slices"
	"strings"
)

// Table detection follows PDF-TREX: each row of words is cut into
// segments of horizontally adjacent words, rows are tagged as text or
// table rows by their segments, and runs of table rows form table areas.
// The segments of an area become cells for BuildMatrix.

// segment is a group of horizontally adjacent words.
type segment struct {
	words []EnrichedWord
	box   Rect
}

func (s segment) text() string {
	var sb strings.Builder
	for i, w := range s.words {
		if i > 0 && wordsSpaced(s.words[i-1], w) {
			sb.WriteByte(' ')
		}
		sb.WriteString(w.Text)
	}
	return sb.String()
}

func (s segment) bold() bool {
	for _, w := range s.words {
		if !w.IsBold {
			return false
		}
	}
	return len(s.words) > 0
}

type lineType int

const (
	unknownLine lineType = iota // single narrow segment
	textLine                    // one segment wider than half the page, or wide prose segments
	tableLine                   // several short segments
)

type taggedLine struct {
	index    int
	line     wordLine
	segments []segment
	kind     lineType
}

// maxTableSegmentRatio caps the width of a table segment relative to the
// page. Side by side prose columns produce rows with several segments too,
// but each of them is wide.
const maxTableSegmentRatio = 0.3

// AdaptiveThresholds are the segment clustering distances for one page.
type AdaptiveThresholds struct {
	HorizontalThreshold float64 // hT: horizontal clustering
	VerticalThreshold   float64 // vT: vertical clustering
}

// DefaultThresholds are used when adaptive thresholds are disabled or the
// page has too little text to measure.
func DefaultThresholds() AdaptiveThresholds {
	return AdaptiveThresholds{HorizontalThreshold: 20.0, VerticalThreshold: 5.0}
}

// calculateAdaptiveThresholds derives thresholds from the page's own word
// and line spacing: median plus 1.5 standard deviations, clamped.
func calculateAdaptiveThresholds(lines []wordLine) AdaptiveThresholds {
	defaults := DefaultThresholds()

	var horizontal, vertical []float64
	for i, line := range lines {
		for j := 1; j < len(line.words); j++ {
			if gap := line.words[j].Box.X0 - line.words[j-1].Box.X1; gap > 0 && gap < 200 {
				horizontal = append(horizontal, gap)
			}
		}
		if i > 0 {
			if gap := line.box.Y0 - lines[i-1].box.Y1; gap > 0 && gap < 200 {
				vertical = append(vertical, gap)
			}
		}
	}

	return AdaptiveThresholds{
		HorizontalThreshold: thresholdFromGaps(horizontal, defaults.HorizontalThreshold),
		VerticalThreshold:   thresholdFromGaps(vertical, defaults.VerticalThreshold),
	}
}

func thresholdFromGaps(gaps []float64, fallback float64) float64 {
	if len(gaps) < 3 {
		return fallback
	}
	return clamp(calculateMedian(gaps)+1.5*calculateStdDev(gaps), 5.0, 100.0)
}

// buildSegments clusters a row's words left to right, starting a new
// segment wherever the gap exceeds hT.
func buildSegments(line wordLine, hT float64) []segment {
	var segments []segment
	for i, word := range line.words {
		if i > 0 && word.Box.X0-line.words[i-1].Box.X1 <= hT {
			last := &segments[len(segments)-1]
			last.words = append(last.words, word)
			last.box = mergeRects(last.box, word.Box)
			continue
		}
		segments = append(segments, segment{words: []EnrichedWord{word}, box: word.Box})
	}
	return segments
}

func tagLine(segments []segment, pageWidth float64) lineType {
	switch {
	case len(segments) == 0:
		return unknownLine
	case len(segments) == 1:
		if segments[0].box.Width() > pageWidth*0.5 {
			return textLine
		}
		return unknownLine
	}
	for _, s := range segments {
		if s.box.Width() > pageWidth*maxTableSegmentRatio {
			return textLine
		}
	}
	return tableLine
}

// tableArea is a run of table rows, trimmed of untagged rows at both ends.
// A vertical gap of more than twice vT between rows ends the run.
type tableArea struct {
	lines []taggedLine
	box   Rect
}

func buildTableAreas(lines []taggedLine, vT float64) []tableArea {
	var (
		areas   []tableArea
		current []taggedLine
	)
	closeArea := func() {
		start, end := 0, len(current)
		for start < end && current[start].kind != tableLine {
			start++
		}
		for end > start && current[end-1].kind != tableLine {
			end--
		}
		run := current[start:end]
		current = nil

		tableRows := 0
		for _, tl := range run {
			if tl.kind == tableLine {
				tableRows++
			}
		}
		if tableRows < 2 {
			return
		}
		area := tableArea{lines: run, box: run[0].line.box}
		for _, tl := range run[1:] {
			area.box = mergeRects(area.box, tl.line.box)
		}
		areas = append(areas, area)
	}

	for _, tl := range lines {
		if tl.kind == textLine {
			closeArea()
			continue
		}
		if n := len(current); n > 0 && tl.line.box.Y0-current[n-1].line.box.Y1 > 2*vT {
			closeArea()
		}
		current = append(current, tl)
	}
	closeArea()
	return areas
}

// detectedTable is a table found on a page with the rows it consumed.
type detectedTable struct {
	table Table
	rows  []int
}

// detectTables finds segment-based tables among rows of words. The
// returned row indices refer to lines.
func detectTables(lines []wordLine, pageWidth float64, thresholds AdaptiveThresholds, opts MatrixOptions) []detectedTable {
	tagged := make([]taggedLine, len(lines))
	for i, line := range lines {
		segments := buildSegments(line, thresholds.HorizontalThreshold)
		tagged[i] = taggedLine{index: i, line: line, segments: segments, kind: tagLine(segments, pageWidth)}
	}

	var tables []detectedTable
	for _, area := range buildTableAreas(tagged, thresholds.VerticalThreshold) {
		var (
			cells    []Cell
			topCells []segment
			rows     []int
		)
		top := area.box.Y0
		for _, tl := range area.lines {
			for _, s := range tl.segments {
				cells = append(cells, Cell{Text: NormalizeText(s.text()), Box: s.box, Block: -1})
				if math.Abs(s.box.Y0-top) <= opts.RowTolerance {
					topCells = append(topCells, s)
				}
			}
			rows = append(rows, tl.index)
		}

		matrix := BuildMatrix(cells, opts)
		if len(matrix) < 2 || len(matrix[0]) < 2 {
			continue
		}

		headerRows := 0
		if len(topCells) > 0 && !slices.ContainsFunc(topCells, func(s segment) bool { return !s.bold() }) {
			headerRows = 1
		}
		tables = append(tables, detectedTable{
			table: TableFromRows(matrix, headerRows, area.box),
			rows:  rows,
		})
	}
	return tables
}

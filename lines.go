package pdfhtml

import (
	"math"
	"slices"
	"strings"
)

// MergeLines prepares a block's lines for paragraph assembly.
//
// Lines are sorted by (y, x). A line that opens with one colored span
// followed only by body-colored spans is split into a heading line and a
// body line, and a line carrying SplitAt is split at the sentence boundary
// before that text. Fragments that sit on the same baseline with nearly the
// same horizontal center are then merged back into one line, unless the
// previous line is a lone colored heading span or the fragment carries a
// forced line break.
func MergeLines(lines []Line, settings LayoutSettings) []Line {
	if len(lines) == 0 {
		return nil
	}

	sorted := slices.Clone(lines)
	sortLinesByPosition(sorted)

	var merged []Line
	for _, line := range sorted {
		for _, segment := range splitLine(line) {
			if len(merged) == 0 {
				merged = append(merged, segment)
				continue
			}

			prev := &merged[len(merged)-1]
			if !isColoredHeadingLine(*prev) &&
				!segment.ForceLineBreak &&
				math.Abs(segment.Box.Y0-prev.Box.Y0) < settings.LineMergeYTolerance &&
				math.Abs(segment.Box.CenterX()-prev.Box.CenterX()) < settings.LineMergeCenterTolerance {
				prev.Spans = append(slices.Clone(prev.Spans), segment.Spans...)
				prev.Box = prev.Box.Union(segment.Box)
				continue
			}
			merged = append(merged, segment)
		}
	}
	return merged
}

// splitLine returns the logical segments of one physical line.
func splitLine(line Line) []Line {
	line.Spans = slices.Clone(line.Spans)
	if len(line.Spans) == 0 {
		return []Line{line}
	}

	if !line.KeepHeading && len(line.Spans) > 1 && !line.Spans[0].HasDefaultColor() {
		restDefault := true
		for _, span := range line.Spans[1:] {
			if !span.HasDefaultColor() {
				restDefault = false
				break
			}
		}
		if restDefault {
			heading := line
			heading.Spans = line.Spans[:1:1]
			heading.splitHeading = true
			heading.SplitAt = ""

			body := line
			body.Spans = slices.Clone(line.Spans[1:])
			body.splitHeading = false
			return []Line{heading, body}
		}
	}

	if line.SplitAt != "" {
		if first, second, ok := splitAtSentence(line); ok {
			return []Line{first, second}
		}
	}

	return []Line{line}
}

// splitAtSentence cuts a line after the ". " that ends the sentence before
// line.SplitAt. The second half gets a forced line break.
func splitAtSentence(line Line) (Line, Line, bool) {
	text := line.Text()
	idx := strings.Index(text, line.SplitAt)
	if idx < 0 {
		return line, Line{}, false
	}
	period := strings.LastIndex(text[:idx+len(line.SplitAt)], ". ")
	if period < 0 {
		return line, Line{}, false
	}
	cut := period + 2

	var firstSpans, secondSpans []Span
	offset := 0
	for _, span := range line.Spans {
		end := offset + len(span.Text)
		switch {
		case end <= cut:
			firstSpans = append(firstSpans, span)
		case offset >= cut:
			secondSpans = append(secondSpans, span)
		default:
			head, tail := span, span
			head.Text = span.Text[:cut-offset]
			tail.Text = span.Text[cut-offset:]
			firstSpans = append(firstSpans, head)
			secondSpans = append(secondSpans, tail)
		}
		offset = end
	}
	if len(firstSpans) == 0 || len(secondSpans) == 0 {
		return line, Line{}, false
	}

	first := line
	first.Spans = firstSpans
	first.SplitAt = ""

	second := line
	second.Spans = secondSpans
	second.SplitAt = ""
	second.ForceLineBreak = true
	return first, second, true
}

// isColoredHeadingLine reports whether the line is a single colored span.
func isColoredHeadingLine(line Line) bool {
	return len(line.Spans) == 1 && line.Spans[0].Color != "" && !line.Spans[0].HasDefaultColor()
}

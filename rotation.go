package pdfhtml

import (
	"math"
	"slices"
)

// rotationTolerance is how far from horizontal, in degrees, a word may be
// tilted and still be read as body text.
const rotationTolerance = 10.0

func isHorizontal(rotation float64) bool {
	angle := normalizeAngle(rotation)
	return angle < rotationTolerance || angle > 360-rotationTolerance
}

// splitRotatedWords separates horizontal words from rotated ones.
func splitRotatedWords(words []EnrichedWord) (horizontal, rotated []EnrichedWord) {
	for _, w := range words {
		if isHorizontal(w.Rotation) {
			horizontal = append(horizontal, w)
		} else {
			rotated = append(rotated, w)
		}
	}
	return horizontal, rotated
}

// rotatedBlocks groups rotated words by their quantized angle into one
// block per angle. Margin labels and stamped watermarks are the usual
// source, so the blocks are kept in the page model but never rendered.
func rotatedBlocks(words []EnrichedWord) []Block {
	const angleBucket = 15.0

	byAngle := make(map[float64][]EnrichedWord)
	for _, w := range words {
		angle := quantizeAngle(normalizeAngle(w.Rotation), angleBucket)
		byAngle[angle] = append(byAngle[angle], w)
	}

	angles := make([]float64, 0, len(byAngle))
	for angle := range byAngle {
		angles = append(angles, angle)
	}
	slices.Sort(angles)

	blocks := make([]Block, 0, len(angles))
	for _, angle := range angles {
		var lines []wordLine
		if isVerticalAngle(angle) {
			lines = groupWordsIntoVerticalLines(byAngle[angle])
		} else {
			lines = groupWordsIntoLines(byAngle[angle])
		}

		block := Block{Kind: BlockText, Hints: []RenderHint{SkipRender{}}}
		for i, line := range lines {
			if i == 0 {
				block.Box = line.box
			} else {
				block.Box = mergeRects(block.Box, line.box)
			}
			block.Lines = append(block.Lines, lineFromWords(line))
		}
		blocks = append(blocks, block)
	}
	return blocks
}

func isVerticalAngle(angle float64) bool {
	return (angle >= 45 && angle < 135) || (angle >= 225 && angle < 315)
}

// groupWordsIntoVerticalLines groups words stacked in the same x band,
// reading each band top to bottom.
func groupWordsIntoVerticalLines(words []EnrichedWord) []wordLine {
	sorted := slices.Clone(words)
	slices.SortStableFunc(sorted, func(a, b EnrichedWord) int {
		if math.Abs(a.Box.CenterX()-b.Box.CenterX()) < 3 {
			return compareFloat(a.Box.Y0, b.Box.Y0)
		}
		return compareFloat(a.Box.CenterX(), b.Box.CenterX())
	})

	var (
		lines   []wordLine
		current []EnrichedWord
		centerX float64
	)
	for _, word := range sorted {
		if len(current) > 0 && math.Abs(word.Box.CenterX()-centerX) < word.FontSize*0.8 {
			current = append(current, word)
			continue
		}
		if len(current) > 0 {
			lines = append(lines, newWordLine(current))
		}
		current = []EnrichedWord{word}
		centerX = word.Box.CenterX()
	}
	if len(current) > 0 {
		lines = append(lines, newWordLine(current))
	}
	return lines
}

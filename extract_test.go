package pdfhtml

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func charsOf(text string, x, y float64) []EnrichedChar {
	chars := make([]EnrichedChar, 0, len(text))
	for _, r := range text {
		chars = append(chars, EnrichedChar{
			Text:       r,
			Box:        Rect{X0: x, Y0: y, X1: x + 5, Y1: y + 10},
			FontSize:   10,
			FontWeight: 400,
			FontName:   "Helvetica",
		})
		x += 5
	}
	return chars
}

func TestGroupCharsIntoWords(t *testing.T) {
	words := groupCharsIntoWords(charsOf("Total: $5 due", 50, 100))

	texts := make([]string, 0, len(words))
	for _, w := range words {
		texts = append(texts, w.Text)
	}
	assert.Equal(t, []string{"Total", ":", "$", "5", "due"}, texts)
	assert.Equal(t, Rect{X0: 50, Y0: 100, X1: 75, Y1: 110}, words[0].Box)

	assert.Empty(t, groupCharsIntoWords(charsOf("   ", 0, 0)))
}

func TestAggregateWord(t *testing.T) {
	chars := charsOf("Bold", 0, 0)
	chars[0].FontWeight = 700
	chars[1].FontWeight = 700
	chars[2].FontWeight = 700
	chars[3].FontName = "Times"
	chars[0].FontSize = 12
	chars[0].FillColor = RGBA{R: 255, A: 255}
	for i := range chars {
		chars[i].Angle = float32(math.Pi / 2)
	}

	w := aggregateWord(chars)
	assert.Equal(t, "Bold", w.Text)
	assert.Equal(t, 700, w.FontWeight)
	assert.Equal(t, "Helvetica", w.FontName)
	assert.Equal(t, 10.5, w.FontSize)
	assert.True(t, w.IsBold)
	assert.False(t, w.IsItalic)
	assert.Equal(t, "#ff0000", w.FillColor.Hex())
	assert.InDelta(t, 90, w.Rotation, 1e-4)
}

func TestAggregateWord_StyleFromFlagsAndName(t *testing.T) {
	italic := charsOf("slant", 0, 0)
	italic[0].FontFlags = pdfFontItalic
	assert.True(t, aggregateWord(italic).IsItalic)

	forced := charsOf("heavy", 0, 0)
	forced[0].FontFlags = pdfFontForceBold
	assert.True(t, aggregateWord(forced).IsBold)

	named := charsOf("named", 0, 0)
	for i := range named {
		named[i].FontName = "Arial-BoldItalicMT"
	}
	w := aggregateWord(named)
	assert.True(t, w.IsBold)
	assert.True(t, w.IsItalic)
}

func TestDominantKey(t *testing.T) {
	assert.Equal(t, 700, dominantKey(map[int]int{400: 1, 700: 3}))
	assert.Equal(t, 400, dominantKey(map[int]int{700: 2, 400: 2}), "ties go to the smaller key")
	assert.Equal(t, "Arial", dominantKey(map[string]int{"Times": 2, "Arial": 2}))
	assert.Equal(t, "", dominantKey(map[string]int{}))
}

func TestDeduplicateCJKChars(t *testing.T) {
	words := []EnrichedWord{
		{Text: "微微软软", Box: Rect{X1: 20, Y1: 10}, FontSize: 10},
		{Text: "微微软软", Box: Rect{X1: 100, Y1: 10}, FontSize: 10},
		{Text: "aabb", Box: Rect{X1: 5, Y1: 10}, FontSize: 10},
		{Text: "微", Box: Rect{X1: 1, Y1: 10}, FontSize: 10},
	}

	out := deduplicateCJKChars(words)
	assert.Equal(t, "微软", out[0].Text)
	assert.Equal(t, "微微软软", out[1].Text, "wide words hold every character")
	assert.Equal(t, "aabb", out[2].Text)
	assert.Equal(t, "微", out[3].Text)
}

func TestSplitRotatedWords(t *testing.T) {
	words := []EnrichedWord{
		{Text: "flat", Rotation: 0},
		{Text: "tilted", Rotation: 5},
		{Text: "wrapped", Rotation: 359},
		{Text: "up", Rotation: 90},
		{Text: "negative", Rotation: -90},
	}

	horizontal, rotated := splitRotatedWords(words)
	require.Len(t, horizontal, 3)
	require.Len(t, rotated, 2)
	assert.Equal(t, "up", rotated[0].Text)
}

func TestRotatedBlocks(t *testing.T) {
	up := EnrichedWord{Text: "up", Box: Rect{X0: 580, Y0: 300, X1: 590, Y1: 320}, FontSize: 10, Rotation: 88}
	more := EnrichedWord{Text: "more", Box: Rect{X0: 580, Y0: 330, X1: 590, Y1: 370}, FontSize: 10, Rotation: 92}
	flipped := EnrichedWord{Text: "flip", Box: Rect{X0: 100, Y0: 700, X1: 140, Y1: 710}, FontSize: 10, Rotation: 180}

	blocks := rotatedBlocks([]EnrichedWord{flipped, more, up})
	require.Len(t, blocks, 2)

	assert.Equal(t, "up more", blocks[0].Text())
	assert.Equal(t, Rect{X0: 580, Y0: 300, X1: 590, Y1: 370}, blocks[0].Box)
	assert.Equal(t, "flip", blocks[1].Text())
	for _, block := range blocks {
		assert.True(t, block.HasHint(SkipRender{}))
	}
}

func TestAngleHelpers(t *testing.T) {
	assert.Equal(t, 270.0, normalizeAngle(-90))
	assert.Equal(t, 10.0, normalizeAngle(370))
	assert.Equal(t, 45.0, quantizeAngle(44, 15))

	assert.Equal(t, "ltr", inferReadingDirection(350))
	assert.Equal(t, "ttb", inferReadingDirection(90))
	assert.Equal(t, "rtl", inferReadingDirection(180))
	assert.Equal(t, "btt", inferReadingDirection(-90))
}

func TestStatsHelpers(t *testing.T) {
	assert.Equal(t, 0.0, calculateMedian(nil))
	assert.Equal(t, 2.0, calculateMedian([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, calculateMedian([]float64{4, 1, 3, 2}))
	assert.Equal(t, 2.0, calculateStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}))
	assert.Equal(t, 1.5, clamp(3, 0.5, 1.5))
	assert.Equal(t, 0.5, clamp(0, 0.5, 1.5))
}

func TestCalculateDocumentStatistics(t *testing.T) {
	doc := Document{Pages: []Page{{
		Number: 1,
		Blocks: []Block{
			{Kind: BlockText},
			{Kind: BlockText, Hints: []RenderHint{SkipRender{}}},
			{Kind: BlockImage},
		},
	}}}
	out := `<h2 id="header-intro">Intro</h2><p>One two three.</p><p>Four.</p>` +
		`<ul class="spell-list"><li class="spell-list-item">Item</li></ul>` +
		`<table><tr><td>a</td></tr></table>`

	stats, err := calculateDocumentStatistics(doc, out)
	require.NoError(t, err)
	assert.Equal(t, DocumentStatistics{
		TotalPages:      1,
		TotalBlocks:     2,
		TotalParagraphs: 2,
		TotalHeadings:   1,
		TotalTables:     1,
		TotalListItems:  1,
		TotalWords:      7,
		TotalCharacters: 27,
	}, stats)
}

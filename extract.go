package pdfhtml

import (
	"math"
	"slices"
	"strings"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PDF font descriptor flags as reported by pdfium.
const (
	pdfFontFixedPitch = 1 << 0
	pdfFontSerif      = 1 << 1
	pdfFontItalic     = 1 << 6
	pdfFontForceBold  = 1 << 18
)

// gutterRatio is the word gap, in font sizes, that separates side by side
// columns sharing a baseline.
const gutterRatio = 2.5

// ExtractPage reads the positioned text of one PDF page into blocks, lines
// and spans. Rotated text is kept as skipped blocks. With DetectTables set,
// table areas are rebuilt as page tables and the rows they cover become
// skipped blocks.
func ExtractPage(instance pdfium.Pdfium, page references.FPDF_PAGE, pageNumber int, config Config) (Page, error) {
	width, err := instance.FPDF_GetPageWidthF(&requests.FPDF_GetPageWidthF{
		Page: requests.Page{ByReference: &page},
	})
	if err != nil {
		return Page{}, errors.Wrap(err, "failed to get page width")
	}

	height, err := instance.FPDF_GetPageHeightF(&requests.FPDF_GetPageHeightF{
		Page: requests.Page{ByReference: &page},
	})
	if err != nil {
		return Page{}, errors.Wrap(err, "failed to get page height")
	}

	result := Page{
		Number: pageNumber,
		Width:  float64(width.PageWidth),
		Height: float64(height.PageHeight),
	}

	textPage, err := instance.FPDFText_LoadPage(&requests.FPDFText_LoadPage{
		Page: requests.Page{ByReference: &page},
	})
	if err != nil {
		return Page{}, errors.Wrap(err, "failed to load text page")
	}
	defer instance.FPDFText_ClosePage(&requests.FPDFText_ClosePage{
		TextPage: textPage.TextPage,
	})

	charCount, err := instance.FPDFText_CountChars(&requests.FPDFText_CountChars{
		TextPage: textPage.TextPage,
	})
	if err != nil {
		return Page{}, errors.Wrap(err, "failed to count characters")
	}
	if charCount.Count == 0 {
		return result, nil
	}

	chars, err := extractEnrichedChars(instance, textPage.TextPage, charCount.Count, result.Height)
	if err != nil {
		return Page{}, errors.Wrap(err, "failed to extract characters")
	}

	words := deduplicateCJKChars(groupCharsIntoWords(chars))
	buildPage(&result, words, config)
	return result, nil
}

// buildPage lays out extracted words as the page's blocks and tables.
func buildPage(page *Page, words []EnrichedWord, config Config) {
	log := config.logger().WithField("page", page.Number)

	horizontal, rotated := splitRotatedWords(words)
	if len(rotated) > 0 {
		log.WithFields(logrus.Fields{
			"words":     len(rotated),
			"direction": inferReadingDirection(rotated[0].Rotation),
		}).Debug("Skipping rotated text")
	}

	rows := groupWordsIntoLines(horizontal)
	consumed := make(map[int]bool)

	if config.DetectTables {
		thresholds := DefaultThresholds()
		if config.UseAdaptiveThresholds {
			thresholds = calculateAdaptiveThresholds(rows)
		}

		for _, found := range detectTables(rows, page.Width, thresholds, config.Matrix) {
			page.Tables = append(page.Tables, found.table)

			var covered []wordLine
			for _, idx := range found.rows {
				consumed[idx] = true
				covered = append(covered, rows[idx])
			}
			for _, block := range buildBlocks(covered) {
				page.Blocks = append(page.Blocks, block.WithHint(SkipRender{}))
			}

			log.WithFields(logrus.Fields{
				"rows":    found.table.NumRows(),
				"columns": found.table.NumCols(),
			}).Debug("Detected table")
		}
	}

	var text []wordLine
	for i, row := range rows {
		if !consumed[i] {
			text = append(text, splitAtGutters(row, gutterRatio)...)
		}
	}
	page.Blocks = append(page.Blocks, buildBlocks(text)...)
	page.Blocks = append(page.Blocks, rotatedBlocks(rotated)...)

	slices.SortStableFunc(page.Blocks, func(a, b Block) int {
		if c := compareFloat(a.Box.Y0, b.Box.Y0); c != 0 {
			return c
		}
		return compareFloat(a.Box.X0, b.Box.X0)
	})
}

// extractEnrichedChars reads every character with its box and styling.
// Boxes are flipped into top-left origin coordinates.
func extractEnrichedChars(instance pdfium.Pdfium, textPage references.FPDF_TEXTPAGE, count int, pageHeight float64) ([]EnrichedChar, error) {
	chars := make([]EnrichedChar, 0, count)

	for i := range count {
		unicodeRes, err := instance.FPDFText_GetUnicode(&requests.FPDFText_GetUnicode{
			TextPage: textPage,
			Index:    i,
		})
		if err != nil || unicodeRes.Unicode == 0 {
			continue
		}

		charBox, err := instance.FPDFText_GetCharBox(&requests.FPDFText_GetCharBox{
			TextPage: textPage,
			Index:    i,
		})
		if err != nil {
			continue
		}

		char := EnrichedChar{
			Text: rune(unicodeRes.Unicode),
			Box: Rect{
				X0: charBox.Left,
				Y0: pageHeight - charBox.Top,
				X1: charBox.Right,
				Y1: pageHeight - charBox.Bottom,
			},
			FontSize:   12,
			FontWeight: 400,
			FillColor:  RGBA{A: 255},
		}

		if size, err := instance.FPDFText_GetFontSize(&requests.FPDFText_GetFontSize{TextPage: textPage, Index: i}); err == nil {
			char.FontSize = size.FontSize
		}
		if weight, err := instance.FPDFText_GetFontWeight(&requests.FPDFText_GetFontWeight{TextPage: textPage, Index: i}); err == nil {
			char.FontWeight = weight.FontWeight
		}
		if info, err := instance.FPDFText_GetFontInfo(&requests.FPDFText_GetFontInfo{TextPage: textPage, Index: i}); err == nil {
			char.FontName = info.FontName
			char.FontFlags = info.Flags
		}
		if fill, err := instance.FPDFText_GetFillColor(&requests.FPDFText_GetFillColor{TextPage: textPage, Index: i}); err == nil {
			char.FillColor = RGBA{R: fill.R, G: fill.G, B: fill.B, A: fill.A}
		}
		if angle, err := instance.FPDFText_GetCharAngle(&requests.FPDFText_GetCharAngle{TextPage: textPage, Index: i}); err == nil {
			char.Angle = angle.CharAngle
		}

		chars = append(chars, char)
	}

	return chars, nil
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isCurrency(r rune) bool {
	return strings.ContainsRune("$€£¥¢", r)
}

func isPunctuation(r rune) bool {
	return strings.ContainsRune(".,;:!?", r)
}

// groupCharsIntoWords splits the character stream on whitespace, and
// around currency signs and punctuation so they can be re-spaced from
// their geometry.
func groupCharsIntoWords(chars []EnrichedChar) []EnrichedWord {
	var (
		words   []EnrichedWord
		current []EnrichedChar
	)
	flush := func() {
		if len(current) > 0 {
			words = append(words, aggregateWord(current))
			current = nil
		}
	}

	for i, char := range chars {
		if isSpaceRune(char.Text) {
			flush()
			continue
		}
		if i > 0 && len(current) > 0 {
			prev := current[len(current)-1].Text
			if isCurrency(char.Text) || isPunctuation(char.Text) || isCurrency(prev) || isPunctuation(prev) {
				flush()
			}
		}
		current = append(current, char)
	}
	flush()
	return words
}

// aggregateWord builds a word from its characters: average size, dominant
// weight and font, and the first character's flags and color.
func aggregateWord(chars []EnrichedChar) EnrichedWord {
	var (
		text      strings.Builder
		box       = chars[0].Box
		totalSize float64
		angle     float64
	)
	weights := make(map[int]int)
	fonts := make(map[string]int)
	for _, c := range chars {
		text.WriteRune(c.Text)
		box = mergeRects(box, c.Box)
		totalSize += c.FontSize
		angle += float64(c.Angle)
		weights[c.FontWeight]++
		fonts[c.FontName]++
	}

	weight := dominantKey(weights)
	font := dominantKey(fonts)
	flags := chars[0].FontFlags
	lowerFont := strings.ToLower(font)

	return EnrichedWord{
		Text:       text.String(),
		Box:        box,
		FontSize:   totalSize / float64(len(chars)),
		FontWeight: weight,
		FontName:   font,
		FontFlags:  flags,
		FillColor:  chars[0].FillColor,
		IsBold:     weight >= 700 || flags&pdfFontForceBold != 0 || strings.Contains(lowerFont, "bold"),
		IsItalic:   flags&pdfFontItalic != 0 || strings.Contains(lowerFont, "italic"),
		Rotation:   angle / float64(len(chars)) * 180 / math.Pi,
	}
}

// dominantKey returns the most frequent key; ties go to the smallest key
// so the result does not depend on map order.
func dominantKey[K int | string](counts map[K]int) K {
	var (
		best      K
		bestCount int
	)
	for key, count := range counts {
		if count > bestCount || (count == bestCount && key < best) {
			best, bestCount = key, count
		}
	}
	return best
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}

// deduplicateCJKChars drops doubled CJK characters that some PDFs draw
// twice at the same position ("微微软软" becomes "微软"). A doubled
// character is only dropped when the word is too narrow to hold both.
func deduplicateCJKChars(words []EnrichedWord) []EnrichedWord {
	for i := range words {
		runes := []rune(words[i].Text)
		if len(runes) <= 1 || !slices.ContainsFunc(runes, isCJK) {
			continue
		}

		narrow := words[i].Box.Width()/float64(len(runes)) < words[i].FontSize*0.7
		out := runes[:1]
		for j := 1; j < len(runes); j++ {
			if narrow && runes[j] == runes[j-1] && isCJK(runes[j]) {
				continue
			}
			out = append(out, runes[j])
		}
		words[i].Text = string(out)
	}
	return words
}

package pdfhtml

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// DefaultColor is the color of body text. Any other color on an isolated
// span is taken as a heading signal.
const DefaultColor = "#000000"

// Rect represents a bounding box in page coordinates (y grows downward).
type Rect struct {
	X0 float64 // Left
	Y0 float64 // Top
	X1 float64 // Right
	Y1 float64 // Bottom
}

// Width returns the width of the rectangle.
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the height of the rectangle.
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// CenterX returns the horizontal center of the rectangle.
func (r Rect) CenterX() float64 {
	return (r.X0 + r.X1) / 2
}

// CenterY returns the vertical center of the rectangle.
func (r Rect) CenterY() float64 {
	return (r.Y0 + r.Y1) / 2
}

// IsZero reports whether all four coordinates are zero.
func (r Rect) IsZero() bool {
	return r.X0 == 0 && r.Y0 == 0 && r.X1 == 0 && r.Y1 == 0
}

// Union returns the smallest rectangle covering both r and other.
func (r Rect) Union(other Rect) Rect {
	return mergeRects(r, other)
}

func (r Rect) valid() bool {
	for _, v := range []float64{r.X0, r.Y0, r.X1, r.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// RGBA represents a color as reported by pdfium.
type RGBA struct {
	R, G, B, A uint
}

// Hex returns the color as a lowercase #rrggbb string.
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R&0xff, c.G&0xff, c.B&0xff)
}

// EnrichedChar represents a single character with all its metadata.
type EnrichedChar struct {
	Text       rune
	Box        Rect
	FontSize   float64
	FontWeight int
	FontName   string
	FontFlags  int
	FillColor  RGBA
	Angle      float32
}

// EnrichedWord represents a word with aggregated style information.
type EnrichedWord struct {
	Text       string
	Box        Rect
	FontSize   float64 // Average font size
	FontWeight int     // Dominant font weight
	FontName   string  // Dominant font name
	FontFlags  int
	FillColor  RGBA
	IsBold     bool
	IsItalic   bool
	Rotation   float64 // Degrees
}

// IsBulletOrNumber checks if the word looks like a list marker.
func (w EnrichedWord) IsBulletOrNumber() bool {
	if len(w.Text) == 0 {
		return false
	}

	runes := []rune(w.Text)
	firstChar := runes[0]

	bullets := []rune{'•', '◦', '▪', '▫', '–', '-', '*', '→'}
	if slices.Contains(bullets, firstChar) {
		return true
	}

	// Number followed by period or parenthesis
	if len(runes) >= 2 {
		if firstChar >= '0' && firstChar <= '9' {
			lastChar := runes[len(runes)-1]
			if lastChar == '.' || lastChar == ')' {
				return true
			}
		}
	}

	return false
}

// Span style flags, matching the bits MuPDF reports for a span.
const (
	FlagSuperscript = 1 << 0
	FlagItalic      = 1 << 1
	FlagSerif       = 1 << 2
	FlagMonospace   = 1 << 3
	FlagBold        = 1 << 4
)

// Span is the smallest styled text unit.
type Span struct {
	Text  string  `json:"text"`
	Font  string  `json:"font,omitempty"`
	Flags int     `json:"flags,omitempty"`
	Color string  `json:"color,omitempty"`
	Size  float64 `json:"size,omitempty"`
}

// IsBold reports whether the span is set in a bold face.
func (s Span) IsBold() bool {
	if s.Flags&FlagBold != 0 {
		return true
	}
	font := strings.ToLower(s.Font)
	return strings.Contains(font, "bold") || strings.Contains(font, "black") || strings.Contains(font, "heavy")
}

// IsItalic reports whether the span is set in an italic or oblique face.
func (s Span) IsItalic() bool {
	if s.Flags&FlagItalic != 0 {
		return true
	}
	font := strings.ToLower(s.Font)
	return strings.Contains(font, "italic") || strings.Contains(font, "oblique")
}

// HasDefaultColor reports whether the span uses the body text color.
func (s Span) HasDefaultColor() bool {
	return isDefaultColor(s.Color)
}

// Line is a row of spans sharing a bounding box.
type Line struct {
	Box            Rect
	Spans          []Span
	ForceLineBreak bool

	// KeepHeading stops MergeLines splitting a colored lead-in span off the line.
	KeepHeading bool

	// SplitAt splits the line after the sentence end preceding this text.
	// The second half starts a new paragraph.
	SplitAt string

	// splitHeading marks the heading half of a line split by MergeLines.
	splitHeading bool
}

// Text returns the concatenated span text.
func (l Line) Text() string {
	var sb strings.Builder
	for _, span := range l.Spans {
		sb.WriteString(span.Text)
	}
	return sb.String()
}

// BlockKind identifies what a block holds.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockTable
	BlockImage
)

func (k BlockKind) String() string {
	switch k {
	case BlockTable:
		return "table"
	case BlockImage:
		return "image"
	default:
		return "text"
	}
}

// Block is a layout unit with its own bounding box.
type Block struct {
	Kind  BlockKind
	Box   Rect
	Lines []Line
	Hints []RenderHint
}

// Text returns the text of every line joined by newlines.
func (b Block) Text() string {
	texts := make([]string, 0, len(b.Lines))
	for _, line := range b.Lines {
		texts = append(texts, line.Text())
	}
	return strings.Join(texts, "\n")
}

// Page represents one page of positioned content.
type Page struct {
	Number int
	Width  float64
	Height float64
	Blocks []Block
	Tables []Table

	// ForceSingleColumn renders blocks in emission order.
	ForceSingleColumn bool
}

// Document represents the complete extracted document structure.
type Document struct {
	Pages []Page
}

// clone returns a copy of the page that render passes may annotate freely.
func (p Page) clone() Page {
	out := p
	out.Blocks = make([]Block, len(p.Blocks))
	for i, block := range p.Blocks {
		block.Lines = slices.Clone(block.Lines)
		for j := range block.Lines {
			block.Lines[j].Spans = slices.Clone(block.Lines[j].Spans)
		}
		block.Hints = slices.Clone(block.Hints)
		out.Blocks[i] = block
	}
	out.Tables = make([]Table, len(p.Tables))
	for i, table := range p.Tables {
		out.Tables[i] = table.clone()
	}
	return out
}

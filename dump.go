package pdfhtml

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
)

// The JSON page dump mirrors the "dict" layout of common PDF text
// extractors: boxes are [x0, y0, x1, y1] arrays, block types may be the
// numeric codes 0 (text) and 1 (image), and span colors may be hex
// strings, packed 0xRRGGBB integers, gray levels, or RGB triples.

type documentJSON struct {
	Pages []pageJSON `json:"pages"`
}

type pageJSON struct {
	Number            int         `json:"number,omitempty"`
	Width             float64     `json:"width"`
	Height            float64     `json:"height"`
	Blocks            []blockJSON `json:"blocks"`
	Tables            []tableJSON `json:"tables,omitempty"`
	ForceSingleColumn bool        `json:"force_single_column,omitempty"`
}

type blockJSON struct {
	Type  BlockKind  `json:"type"`
	BBox  Rect       `json:"bbox"`
	Lines []lineJSON `json:"lines,omitempty"`
}

type lineJSON struct {
	BBox           Rect       `json:"bbox"`
	Spans          []spanJSON `json:"spans"`
	ForceLineBreak bool       `json:"force_line_break,omitempty"`
}

type spanJSON struct {
	Text  string    `json:"text"`
	Font  string    `json:"font,omitempty"`
	Flags int       `json:"flags,omitempty"`
	Color jsonColor `json:"color,omitempty"`
	Size  float64   `json:"size,omitempty"`
}

type tableJSON struct {
	BBox       Rect         `json:"bbox"`
	HeaderRows int          `json:"header_rows,omitempty"`
	Class      string       `json:"class,omitempty"`
	Rows       [][]cellJSON `json:"rows"`
}

type cellJSON struct {
	Text    string `json:"text"`
	RowSpan int    `json:"rowspan,omitempty"`
	ColSpan int    `json:"colspan,omitempty"`
	Bold    bool   `json:"bold,omitempty"`
}

// LoadDocumentJSON decodes a JSON page dump. Pages without a number are
// numbered by position starting at 1.
func LoadDocumentJSON(r io.Reader) (Document, error) {
	var dump documentJSON
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return Document{}, errors.Wrap(err, "failed to decode page dump")
	}

	doc := Document{Pages: make([]Page, 0, len(dump.Pages))}
	for i, p := range dump.Pages {
		page := Page{
			Number:            p.Number,
			Width:             p.Width,
			Height:            p.Height,
			ForceSingleColumn: p.ForceSingleColumn,
		}
		if page.Number == 0 {
			page.Number = i + 1
		}
		for _, b := range p.Blocks {
			block := Block{Kind: b.Type, Box: b.BBox}
			for _, l := range b.Lines {
				line := Line{Box: l.BBox, ForceLineBreak: l.ForceLineBreak}
				for _, s := range l.Spans {
					line.Spans = append(line.Spans, Span{
						Text:  s.Text,
						Font:  s.Font,
						Flags: s.Flags,
						Color: string(s.Color),
						Size:  s.Size,
					})
				}
				block.Lines = append(block.Lines, line)
			}
			page.Blocks = append(page.Blocks, block)
		}
		for _, t := range p.Tables {
			table := Table{Box: t.BBox, HeaderRows: t.HeaderRows, Class: t.Class}
			for _, row := range t.Rows {
				cells := make([]TableCell, len(row))
				for j, c := range row {
					cells[j] = TableCell{Text: c.Text, RowSpan: c.RowSpan, ColSpan: c.ColSpan, Bold: c.Bold}
				}
				table.Rows = append(table.Rows, TableRow{Cells: cells})
			}
			page.Tables = append(page.Tables, table)
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

// MarshalJSON encodes the document in the page dump format. Render hints
// are transient and are not written.
func (d Document) MarshalJSON() ([]byte, error) {
	dump := documentJSON{Pages: make([]pageJSON, 0, len(d.Pages))}
	for _, page := range d.Pages {
		p := pageJSON{
			Number:            page.Number,
			Width:             page.Width,
			Height:            page.Height,
			Blocks:            make([]blockJSON, 0, len(page.Blocks)),
			ForceSingleColumn: page.ForceSingleColumn,
		}
		for _, block := range page.Blocks {
			b := blockJSON{Type: block.Kind, BBox: block.Box}
			for _, line := range block.Lines {
				l := lineJSON{BBox: line.Box, ForceLineBreak: line.ForceLineBreak, Spans: make([]spanJSON, 0, len(line.Spans))}
				for _, span := range line.Spans {
					l.Spans = append(l.Spans, spanJSON{
						Text:  span.Text,
						Font:  span.Font,
						Flags: span.Flags,
						Color: jsonColor(span.Color),
						Size:  span.Size,
					})
				}
				b.Lines = append(b.Lines, l)
			}
			p.Blocks = append(p.Blocks, b)
		}
		for _, table := range page.Tables {
			t := tableJSON{BBox: table.Box, HeaderRows: table.HeaderRows, Class: table.Class, Rows: make([][]cellJSON, 0, len(table.Rows))}
			for _, row := range table.Rows {
				cells := make([]cellJSON, len(row.Cells))
				for j, c := range row.Cells {
					cells[j] = cellJSON{Text: c.Text, RowSpan: c.RowSpan, ColSpan: c.ColSpan, Bold: c.Bold}
				}
				t.Rows = append(t.Rows, cells)
			}
			p.Tables = append(p.Tables, t)
		}
		dump.Pages = append(dump.Pages, p)
	}
	return json.Marshal(dump)
}

// MarshalJSON encodes the rectangle as [x0, y0, x1, y1].
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.X0, r.Y0, r.X1, r.Y1})
}

// UnmarshalJSON decodes a [x0, y0, x1, y1] array. An empty array is the
// zero rectangle.
func (r *Rect) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return errors.Wrap(err, "bbox must be an array of numbers")
	}
	switch len(coords) {
	case 0:
		*r = Rect{}
	case 4:
		*r = Rect{X0: coords[0], Y0: coords[1], X1: coords[2], Y1: coords[3]}
	default:
		return errors.Errorf("bbox has %d coordinates, want 4", len(coords))
	}
	return nil
}

// MarshalText encodes the kind by name.
func (k BlockKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalJSON accepts "text", "table", "image" or the numeric codes 0
// (text) and 1 (image). Other codes are non-text content.
func (k *BlockKind) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		if code == 0 {
			*k = BlockText
		} else {
			*k = BlockImage
		}
		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return errors.Wrap(err, "block type must be a string or number")
	}
	switch name {
	case "", "text":
		*k = BlockText
	case "table":
		*k = BlockTable
	default:
		*k = BlockImage
	}
	return nil
}

// jsonColor normalizes the color encodings found in page dumps to a hex
// string.
type jsonColor string

func (c *jsonColor) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "invalid span color")
	}

	switch v := raw.(type) {
	case nil:
		*c = ""
	case string:
		*c = jsonColor(v)
	case float64:
		if v == math.Trunc(v) && v >= 1 {
			n := int(v)
			*c = jsonColor(fmt.Sprintf("#%02x%02x%02x", (n>>16)&0xff, (n>>8)&0xff, n&0xff))
			return nil
		}
		if v == 0 {
			*c = DefaultColor
			return nil
		}
		g := channel(v)
		*c = jsonColor(fmt.Sprintf("#%02x%02x%02x", g, g, g))
	case []any:
		if len(v) < 3 {
			return errors.Errorf("color has %d channels, want 3", len(v))
		}
		var rgb [3]int
		for i := range rgb {
			f, ok := v[i].(float64)
			if !ok {
				return errors.New("color channels must be numbers")
			}
			rgb[i] = channel(f)
		}
		*c = jsonColor(fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]))
	default:
		return errors.Errorf("unsupported color %s", string(data))
	}
	return nil
}

// channel maps a 0..1 fraction to 0..255; values above 1 are taken as
// already scaled.
func channel(v float64) int {
	if v <= 1 {
		v *= 255
	}
	return int(math.Max(0, math.Min(255, math.Round(v))))
}

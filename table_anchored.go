package pdfhtml

import (
	"slices"
	"strings"

	"github.com/tidwall/rtree"
	"gopkg.in/yaml.v3"
)

// AnchoredColumn is a declared table column covering [X0, X1).
type AnchoredColumn struct {
	Name string  `yaml:"name"`
	X0   float64 `yaml:"x0"`
	X1   float64 `yaml:"x1"`
}

// AnchoredTable describes a table whose rows are anchored on a known
// sequence of labels, such as "A".."J" down the left edge.
type AnchoredTable struct {
	// Labels are the row labels that must all be present.
	Labels []string `yaml:"labels"`

	// LabelX0 and LabelX1 bound where labels are searched for. An empty
	// range searches the whole page.
	LabelX0 float64 `yaml:"label_x0"`
	LabelX1 float64 `yaml:"label_x1"`

	// LabelHeader titles the label column in the header row.
	LabelHeader string `yaml:"label_header"`

	Columns []AnchoredColumn `yaml:"columns"`

	// A row's window opens LeadIn above its label and closes SpanRatio of
	// the way to the next label. The last row closes TrailingSpan below
	// its label.
	LeadIn       float64 `yaml:"lead_in"`
	SpanRatio    float64 `yaml:"span_ratio"`
	TrailingSpan float64 `yaml:"trailing_span"`

	// Separator joins several pieces found in one window.
	Separator string `yaml:"separator"`

	// Missing fills windows holding no text.
	Missing string `yaml:"missing"`

	Class string `yaml:"class"`
}

// DefaultAnchoredTable returns the window defaults for row-anchored tables.
func DefaultAnchoredTable() AnchoredTable {
	return AnchoredTable{
		LeadIn:       2,
		SpanRatio:    0.8,
		TrailingSpan: 20,
		Separator:    "\n",
		Missing:      "-",
	}
}

// UnmarshalYAML decodes over DefaultAnchoredTable so omitted keys keep
// their defaults.
func (a *AnchoredTable) UnmarshalYAML(value *yaml.Node) error {
	type plain AnchoredTable
	out := plain(DefaultAnchoredTable())
	if err := value.Decode(&out); err != nil {
		return err
	}
	*a = AnchoredTable(out)
	return nil
}

func (a AnchoredTable) inLabelRange(cell Cell) bool {
	if a.LabelX1 <= a.LabelX0 {
		return true
	}
	return cell.Box.X0 >= a.LabelX0 && cell.Box.X0 < a.LabelX1
}

type anchor struct {
	label string
	cell  int
	y     float64
}

// BuildAnchoredTable rebuilds a table from loose cells using row labels as
// anchors. Every label must be found; if one is missing the second return
// value is false and no partial table is produced.
//
// Each row covers [y - LeadIn, y + SpanRatio*(next - y)) from its label's
// top y, and each declared column covers its half-open x range. Cells are
// matched on their top-left corner.
func BuildAnchoredTable(cells []Cell, spec AnchoredTable) (Table, bool) {
	if len(spec.Labels) == 0 || len(spec.Columns) == 0 {
		return Table{}, false
	}

	used := make(map[int]bool, len(spec.Labels))
	anchors := make([]anchor, 0, len(spec.Labels))
	for _, label := range spec.Labels {
		idx := slices.IndexFunc(cells, func(c Cell) bool {
			return strings.TrimSpace(c.Text) == label && spec.inLabelRange(c)
		})
		for idx >= 0 && used[idx] {
			next := slices.IndexFunc(cells[idx+1:], func(c Cell) bool {
				return strings.TrimSpace(c.Text) == label && spec.inLabelRange(c)
			})
			if next < 0 {
				idx = -1
				break
			}
			idx += next + 1
		}
		if idx < 0 {
			return Table{}, false
		}
		used[idx] = true
		anchors = append(anchors, anchor{label: label, cell: idx, y: cells[idx].Box.Y0})
	}
	slices.SortStableFunc(anchors, func(a, b anchor) int {
		return compareFloat(a.y, b.y)
	})

	var tr rtree.RTreeG[int]
	for i, cell := range cells {
		if used[i] {
			continue
		}
		pt := [2]float64{cell.Box.X0, cell.Box.Y0}
		tr.Insert(pt, pt, i)
	}

	var rows [][]string
	if header := spec.headerRow(); header != nil {
		rows = append(rows, header)
	}

	var box Rect
	for i, a := range anchors {
		yMin := a.y - spec.LeadIn
		yMax := a.y + spec.TrailingSpan
		if i+1 < len(anchors) {
			yMax = a.y + (anchors[i+1].y-a.y)*spec.SpanRatio
		}

		row := []string{a.label}
		box = unionNonZero(box, cells[a.cell].Box)
		for _, col := range spec.Columns {
			var hits []int
			tr.Search([2]float64{col.X0, yMin}, [2]float64{col.X1, yMax}, func(_, _ [2]float64, idx int) bool {
				c := cells[idx].Box
				if c.X0 >= col.X0 && c.X0 < col.X1 && c.Y0 >= yMin && c.Y0 < yMax {
					hits = append(hits, idx)
				}
				return true
			})
			row = append(row, spec.windowText(cells, hits))
			for _, idx := range hits {
				box = unionNonZero(box, cells[idx].Box)
			}
		}
		rows = append(rows, row)
	}

	headerRows := 0
	if spec.headerRow() != nil {
		headerRows = 1
	}
	table := TableFromRows(rows, headerRows, box)
	table.Class = spec.Class
	return table, true
}

func (a AnchoredTable) headerRow() []string {
	named := a.LabelHeader != ""
	header := []string{a.LabelHeader}
	for _, col := range a.Columns {
		named = named || col.Name != ""
		header = append(header, col.Name)
	}
	if !named {
		return nil
	}
	return header
}

func (a AnchoredTable) windowText(cells []Cell, hits []int) string {
	slices.SortFunc(hits, func(x, y int) int {
		if c := compareFloat(cells[x].Box.Y0, cells[y].Box.Y0); c != 0 {
			return c
		}
		return compareFloat(cells[x].Box.X0, cells[y].Box.X0)
	})

	pieces := make([]string, 0, len(hits))
	for _, idx := range hits {
		if text := NormalizeText(cells[idx].Text); text != "" {
			pieces = append(pieces, text)
		}
	}
	if len(pieces) == 0 {
		return a.Missing
	}
	return strings.Join(pieces, a.Separator)
}

func unionNonZero(box, other Rect) Rect {
	if box.IsZero() {
		return other
	}
	return box.Union(other)
}

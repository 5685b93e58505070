package pdfhtml

import (
	"slices"
)

// BuildMatrix places positioned cells into a dense row-major grid.
//
// Cell tops are clustered into rows and cell left edges into columns. When
// opts.ExpectedColumns is positive and more column clusters are found, the
// two closest adjacent clusters are merged until the counts match. Each
// cell goes to its nearest row and column; cells sharing a slot are joined
// top to bottom, left to right, with hyphenated fragments spliced. Slots
// no cell landed in hold opts.Placeholder.
//
// Every row of the result has the same length.
func BuildMatrix(cells []Cell, opts MatrixOptions) [][]string {
	if len(cells) == 0 {
		return nil
	}

	ys := make([]float64, len(cells))
	xs := make([]float64, len(cells))
	for i, cell := range cells {
		ys[i] = cell.Box.Y0
		xs[i] = cell.Box.X0
	}

	rows := Cluster(ys, opts.RowTolerance)
	columns := Cluster(xs, opts.ColumnTolerance)
	if opts.ExpectedColumns > 0 && len(columns) > opts.ExpectedColumns {
		columns = mergeClosestCentroids(columns, opts.ExpectedColumns)
	}

	buckets := make([][][]Cell, len(rows))
	for r := range buckets {
		buckets[r] = make([][]Cell, len(columns))
	}
	for _, cell := range cells {
		r := NearestCentroid(rows, cell.Box.Y0)
		c := NearestCentroid(columns, cell.Box.X0)
		buckets[r][c] = append(buckets[r][c], cell)
	}

	matrix := make([][]string, len(rows))
	for r, row := range buckets {
		matrix[r] = make([]string, len(columns))
		for c, bucket := range row {
			text := joinCellTexts(bucket)
			if text == "" {
				text = opts.Placeholder
			}
			matrix[r][c] = text
		}
	}
	return matrix
}

func joinCellTexts(cells []Cell) string {
	if len(cells) == 0 {
		return ""
	}
	sorted := slices.Clone(cells)
	slices.SortStableFunc(sorted, func(a, b Cell) int {
		if c := compareFloat(a.Box.Y0, b.Box.Y0); c != 0 {
			return c
		}
		return compareFloat(a.Box.X0, b.Box.X0)
	})

	texts := make([]string, 0, len(sorted))
	for _, cell := range sorted {
		if text := collapseWhitespace(cell.Text); text != "" {
			texts = append(texts, text)
		}
	}
	return JoinFragments(MergeFragments(texts))
}

// TableFromRows wraps a text grid in a Table. The first headerRows rows
// render as header cells.
func TableFromRows(rows [][]string, headerRows int, box Rect) Table {
	table := Table{
		Rows:       make([]TableRow, 0, len(rows)),
		HeaderRows: max(0, min(headerRows, len(rows))),
		Box:        box,
	}
	for _, row := range rows {
		cells := make([]TableCell, len(row))
		for i, text := range row {
			cells[i] = TableCell{Text: text, RowSpan: 1, ColSpan: 1}
		}
		table.Rows = append(table.Rows, TableRow{Cells: cells})
	}
	return table
}

// CollectCells turns every non-empty line of the given blocks into a cell.
// Out of range indices are ignored.
func CollectCells(page Page, blockIndices []int) []Cell {
	var cells []Cell
	for _, idx := range blockIndices {
		if idx < 0 || idx >= len(page.Blocks) {
			continue
		}
		for _, line := range page.Blocks[idx].Lines {
			text := NormalizeText(line.Text())
			if text == "" {
				continue
			}
			cells = append(cells, Cell{Text: text, Box: line.Box, Block: idx})
		}
	}
	return cells
}

package pdfhtml

import "slices"

// Cell is a positioned piece of text waiting to be placed in a table grid.
type Cell struct {
	Text  string
	Box   Rect
	Block int // Index of the block the cell came from, -1 if synthetic
}

// TableCell is one rendered table cell.
type TableCell struct {
	Text    string
	RowSpan int
	ColSpan int
	Bold    bool
}

// TableRow represents a row of cells in a table.
type TableRow struct {
	Cells []TableCell
}

// Table represents a reconstructed table.
type Table struct {
	Rows       []TableRow
	HeaderRows int
	Box        Rect
	Class      string

	// Skip drops the table from page-level rendering, typically because a
	// block already carries it as an AttachedTable.
	Skip bool
}

// NumRows returns the number of rows.
func (t Table) NumRows() int {
	return len(t.Rows)
}

// NumCols returns the widest row's cell count.
func (t Table) NumCols() int {
	cols := 0
	for _, row := range t.Rows {
		cols = max(cols, len(row.Cells))
	}
	return cols
}

// Matrix returns the table text as a row-major grid.
func (t Table) Matrix() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			out[i][j] = cell.Text
		}
	}
	return out
}

func (t Table) clone() Table {
	out := t
	out.Rows = make([]TableRow, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = TableRow{Cells: slices.Clone(row.Cells)}
	}
	return out
}

// MatrixOptions configures BuildMatrix.
type MatrixOptions struct {
	// ExpectedColumns, when positive, merges surplus column clusters.
	ExpectedColumns int `yaml:"expected_columns"`

	// RowTolerance is the clustering tolerance on cell y positions.
	RowTolerance float64 `yaml:"row_tolerance"`

	// ColumnTolerance is the clustering tolerance on cell x positions.
	ColumnTolerance float64 `yaml:"column_tolerance"`

	// Placeholder fills grid slots no cell landed in.
	Placeholder string `yaml:"placeholder"`
}

// DefaultMatrixOptions returns the default grid building options.
func DefaultMatrixOptions() MatrixOptions {
	return MatrixOptions{
		RowTolerance:    2.5,
		ColumnTolerance: 6.0,
	}
}

package pdfhtml_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanvanderbyl/pdfhtml"
)

func cellAt(text string, x, y float64) pdfhtml.Cell {
	return pdfhtml.Cell{
		Text:  text,
		Box:   pdfhtml.Rect{X0: x, Y0: y, X1: x + 30, Y1: y + 10},
		Block: -1,
	}
}

func TestBuildMatrix_LabelValueGrid(t *testing.T) {
	labels := []string{"A", "B", "C", "D", "E"}
	jitter := []float64{0, 0.6, -0.9, 1.0, -0.5}

	var cells []pdfhtml.Cell
	for i, label := range labels {
		y := 100 + float64(i)*20
		cells = append(cells, cellAt(fmt.Sprintf("%d", (i+1)*10), 200+jitter[(i+2)%5], y+jitter[(i+1)%5]))
		cells = append(cells, cellAt(label, 50+jitter[i], y+jitter[i]))
	}

	matrix := pdfhtml.BuildMatrix(cells, pdfhtml.DefaultMatrixOptions())
	assert.Equal(t, [][]string{
		{"A", "10"},
		{"B", "20"},
		{"C", "30"},
		{"D", "40"},
		{"E", "50"},
	}, matrix)
}

func TestBuildMatrix_ExpectedColumnsMergesClosestClusters(t *testing.T) {
	cells := []pdfhtml.Cell{
		cellAt("Rate", 50, 100), cellAt("10", 200, 100), cellAt("%", 215, 100),
		cellAt("Fee", 50, 120), cellAt("20", 200, 120), cellAt("%", 215, 120),
	}

	opts := pdfhtml.DefaultMatrixOptions()
	assert.Len(t, pdfhtml.BuildMatrix(cells, opts)[0], 3)

	opts.ExpectedColumns = 2
	assert.Equal(t, [][]string{
		{"Rate", "10 %"},
		{"Fee", "20 %"},
	}, pdfhtml.BuildMatrix(cells, opts))
}

func TestBuildMatrix_DenseWithPlaceholder(t *testing.T) {
	cells := []pdfhtml.Cell{
		cellAt("a", 50, 100), cellAt("b", 150, 100), cellAt("c", 250, 100),
		cellAt("d", 50, 120),
		cellAt("e", 150, 140), cellAt("f", 250, 140),
	}

	opts := pdfhtml.DefaultMatrixOptions()
	opts.Placeholder = "-"
	matrix := pdfhtml.BuildMatrix(cells, opts)

	require.Len(t, matrix, 3)
	for _, row := range matrix {
		assert.Len(t, row, 3)
	}
	assert.Equal(t, []string{"d", "-", "-"}, matrix[1])
	assert.Equal(t, []string{"-", "e", "f"}, matrix[2])
}

func TestBuildMatrix_JoinsSlotFragments(t *testing.T) {
	cells := []pdfhtml.Cell{
		cellAt("cal", 50, 101.5),
		cellAt("opti-", 50, 100),
		cellAt("x", 150, 100),
	}
	assert.Equal(t, [][]string{{"optical", "x"}}, pdfhtml.BuildMatrix(cells, pdfhtml.DefaultMatrixOptions()))
}

func TestBuildMatrix_Empty(t *testing.T) {
	assert.Nil(t, pdfhtml.BuildMatrix(nil, pdfhtml.DefaultMatrixOptions()))
}

func TestTableFromRows(t *testing.T) {
	table := pdfhtml.TableFromRows([][]string{{"h1", "h2"}, {"a", "b"}}, 5, pdfhtml.Rect{X1: 10, Y1: 10})
	assert.Equal(t, 2, table.HeaderRows, "header rows are clamped to the row count")
	assert.Equal(t, 2, table.NumRows())
	assert.Equal(t, 2, table.NumCols())
	assert.Equal(t, [][]string{{"h1", "h2"}, {"a", "b"}}, table.Matrix())
	assert.Equal(t, 1, table.Rows[1].Cells[0].RowSpan)
	assert.Equal(t, 1, table.Rows[1].Cells[0].ColSpan)
}

func TestRenderTable(t *testing.T) {
	table := pdfhtml.Table{
		HeaderRows: 1,
		Rows: []pdfhtml.TableRow{
			{Cells: []pdfhtml.TableCell{{Text: "Name"}, {Text: "Value"}}},
			{Cells: []pdfhtml.TableCell{{Text: "A", Bold: true}, {Text: ""}}},
			{},
			{Cells: []pdfhtml.TableCell{{Text: "a < b", ColSpan: 2}}},
			{Cells: []pdfhtml.TableCell{{Text: "tall", RowSpan: 2}, {Text: "opti- cal"}}},
		},
	}

	assert.Equal(t,
		`<table class="data">`+
			`<tr><th>Name</th><th>Value</th></tr>`+
			`<tr><td><strong>A</strong></td><td>&nbsp;</td></tr>`+
			`<tr><td colspan="2">a &lt; b</td></tr>`+
			`<tr><td rowspan="2">tall</td><td>optical</td></tr>`+
			`</table>`,
		pdfhtml.RenderTable(table, "data"))

	table.Class = "own"
	assert.Contains(t, pdfhtml.RenderTable(table, "data"), `<table class="own">`)

	table.Class = ""
	assert.Contains(t, pdfhtml.RenderTable(table, ""), "<table><tr>")

	assert.Equal(t, "", pdfhtml.RenderTable(pdfhtml.Table{}, "data"))
}

func TestCollectCells(t *testing.T) {
	page := pdfhtml.Page{
		Blocks: []pdfhtml.Block{
			textBlock(50, 100, 150, 130, "First", "  "),
			textBlock(200, 100, 300, 130, "Second"),
		},
	}

	cells := pdfhtml.CollectCells(page, []int{1, 0, 7, -1})
	require.Len(t, cells, 2)
	assert.Equal(t, "Second", cells[0].Text)
	assert.Equal(t, 1, cells[0].Block)
	assert.Equal(t, "First", cells[1].Text)
	assert.Equal(t, 0, cells[1].Block)
}

package pdfhtml_test

import (
	"math"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanvanderbyl/pdfhtml"
)

func quietConfig() pdfhtml.Config {
	config := pdfhtml.DefaultConfig()
	logger, _ := test.NewNullLogger()
	config.Logger = logger
	return config
}

func renderPage(t *testing.T, page pdfhtml.Page) string {
	t.Helper()
	out, err := pdfhtml.RenderPage(page, quietConfig())
	require.NoError(t, err)
	return out
}

func parseHTML(t *testing.T, content string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	require.NoError(t, err)
	return doc
}

func letterPage(blocks ...pdfhtml.Block) pdfhtml.Page {
	return pdfhtml.Page{Number: 1, Width: 612, Height: 792, Blocks: blocks}
}

func TestRenderPage_TwoColumnsStayIndependent(t *testing.T) {
	page := letterPage(
		textBlock(320, 100, 550, 126, "dog near the river", "bank at dusk."),
		textBlock(50, 100, 280, 126, "The quick brown fox", "jumps over the lazy"),
	)

	assert.Equal(t,
		"<p>The quick brown fox jumps over the lazy</p><p>dog near the river bank at dusk.</p>",
		renderPage(t, page))
}

func TestRenderPage_SingleColumnMergesAcrossBlocks(t *testing.T) {
	page := letterPage(
		textBlock(50, 140, 400, 152, "on the next line."),
		textBlock(50, 100, 400, 112, "The report continues"),
	)
	assert.Equal(t, "<p>The report continues on the next line.</p>", renderPage(t, page))
}

func TestRenderPage_ParagraphGapSplitsBlock(t *testing.T) {
	block := textBlock(50, 100, 400, 200, "First paragraph line one", "still the first paragraph.")
	block.Lines = append(block.Lines,
		pdfhtml.Line{
			Box:   pdfhtml.Rect{X0: 50, Y0: 160, X1: 400, Y1: 172},
			Spans: []pdfhtml.Span{{Text: "Second paragraph starts."}},
		},
		pdfhtml.Line{
			Box:   pdfhtml.Rect{X0: 50, Y0: 174, X1: 400, Y1: 186},
			Spans: []pdfhtml.Span{{Text: "It ends here."}},
		},
	)

	assert.Equal(t,
		"<p>First paragraph line one still the first paragraph.</p><p>Second paragraph starts. It ends here.</p>",
		renderPage(t, letterPage(block)))
}

func TestRenderPage_FullWidthItemsAreSequenced(t *testing.T) {
	page := letterPage(
		textBlock(50, 100, 280, 126, "Left column text."),
		textBlock(320, 100, 550, 126, "Right column text."),
		textBlock(50, 50, 560, 62, "Report title."),
	)
	page.Tables = []pdfhtml.Table{
		pdfhtml.TableFromRows([][]string{{"Item", "Cost"}, {"Pen", "2"}}, 1, pdfhtml.Rect{X0: 50, Y0: 500, X1: 300, Y1: 540}),
	}

	out := renderPage(t, page)
	title := strings.Index(out, "Report title.")
	left := strings.Index(out, "Left column text.")
	right := strings.Index(out, "Right column text.")
	table := strings.Index(out, "<table>")

	require.True(t, title >= 0 && left >= 0 && right >= 0 && table >= 0, out)
	assert.Less(t, title, left)
	assert.Less(t, left, right)
	assert.Less(t, right, table)
	assert.Contains(t, out, "<tr><th>Item</th><th>Cost</th></tr><tr><td>Pen</td><td>2</td></tr>")
}

func TestRenderPage_TableBetweenColumnRuns(t *testing.T) {
	page := letterPage(
		textBlock(50, 100, 280, 126, "Left top."),
		textBlock(320, 100, 550, 126, "Right top."),
		textBlock(50, 400, 280, 426, "Left bottom.").WithHint(pdfhtml.ForceBreak{}),
	)
	page.Tables = []pdfhtml.Table{
		pdfhtml.TableFromRows([][]string{{"a", "b"}}, 0, pdfhtml.Rect{X0: 50, Y0: 250, X1: 550, Y1: 300}),
	}

	out := renderPage(t, page)
	assert.Less(t, strings.Index(out, "Left top."), strings.Index(out, "<table>"))
	assert.Less(t, strings.Index(out, "<table>"), strings.Index(out, "Left bottom."))
	assert.Less(t, strings.Index(out, "Left bottom."), strings.Index(out, "Right top."))
}

func TestRenderPage_TablesCanBeDisabled(t *testing.T) {
	page := letterPage(textBlock(50, 100, 280, 126, "Text."))
	page.Tables = []pdfhtml.Table{pdfhtml.TableFromRows([][]string{{"a"}}, 0, pdfhtml.Rect{X0: 50, Y0: 200, X1: 100, Y1: 220})}

	config := quietConfig()
	config.IncludeTables = false
	out, err := pdfhtml.RenderPage(page, config)
	require.NoError(t, err)
	assert.NotContains(t, out, "<table")
}

func TestRenderPage_Headings(t *testing.T) {
	page := letterPage(
		textBlock(50, 100, 400, 112, "ignored text").WithHint(pdfhtml.Heading{Level: 1, Text: "Overview & Scope"}),
		textBlock(50, 130, 400, 142, "Deep Section").WithHint(pdfhtml.Heading{Level: 7}),
	)

	out := renderPage(t, page)
	doc := parseHTML(t, out)

	h2 := doc.Find("h2#header-overview-scope")
	require.Equal(t, 1, h2.Length(), out)
	assert.Contains(t, h2.Text(), "Overview & Scope")
	assert.Equal(t, "#top", h2.Find("a").AttrOr("href", ""))

	h4 := doc.Find("h4#header-deep-section")
	require.Equal(t, 1, h4.Length(), out)
	assert.NotContains(t, out, "ignored text")
}

func TestRenderPage_ListItems(t *testing.T) {
	page := letterPage(
		textBlock(50, 80, 400, 92, "Ingredients:"),
		textBlock(50, 100, 400, 112, "• First item").WithHint(pdfhtml.ListItem{}),
		textBlock(50, 120, 400, 132, "- Second item").WithHint(pdfhtml.ListItem{}),
	)

	assert.Equal(t,
		`<p>Ingredients:</p><ul class="spell-list"><li class="spell-list-item">First item</li><li class="spell-list-item">Second item</li></ul>`,
		renderPage(t, page))
}

func TestRenderPage_InlineStyles(t *testing.T) {
	block := pdfhtml.Block{
		Kind: pdfhtml.BlockText,
		Box:  pdfhtml.Rect{X0: 50, Y0: 100, X1: 400, Y1: 112},
		Lines: []pdfhtml.Line{{
			Box: pdfhtml.Rect{X0: 50, Y0: 100, X1: 400, Y1: 112},
			Spans: []pdfhtml.Span{
				{Text: "Plain ", Color: "#000000"},
				{Text: "red", Color: "#FF0000"},
				{Text: " and ", Color: "#000000"},
				{Text: "bold", Font: "Arial-BoldMT"},
				{Text: " and ", Color: "#000000"},
				{Text: "slanted.", Flags: pdfhtml.FlagItalic},
			},
		}},
	}

	assert.Equal(t,
		`<p>Plain <span style="color: #ff0000">red</span> and <strong>bold</strong> and <em>slanted.</em></p>`,
		renderPage(t, letterPage(block)))
}

func TestRenderPage_ColoredLeadInBecomesOwnParagraph(t *testing.T) {
	block := pdfhtml.Block{
		Kind: pdfhtml.BlockText,
		Box:  pdfhtml.Rect{X0: 50, Y0: 100, X1: 400, Y1: 112},
		Lines: []pdfhtml.Line{{
			Box: pdfhtml.Rect{X0: 50, Y0: 100, X1: 400, Y1: 112},
			Spans: []pdfhtml.Span{
				{Text: "Warning", Color: "#c00000"},
				{Text: " keep the lid closed."},
			},
		}},
	}

	assert.Equal(t,
		`<p><span style="color: #c00000">Warning</span></p><p>keep the lid closed.</p>`,
		renderPage(t, letterPage(block)))
}

func TestRenderPage_LetterSpacedHeadingIsClosedUp(t *testing.T) {
	line := func(y float64, span pdfhtml.Span) pdfhtml.Line {
		return pdfhtml.Line{Box: pdfhtml.Rect{X0: 50, Y0: y, X1: 400, Y1: y + 12}, Spans: []pdfhtml.Span{span}}
	}
	block := pdfhtml.Block{
		Kind: pdfhtml.BlockText,
		Box:  pdfhtml.Rect{X0: 50, Y0: 100, X1: 400, Y1: 152},
		Lines: []pdfhtml.Line{
			line(100, pdfhtml.Span{Text: "M u l", Color: "#c00000"}),
			line(140, pdfhtml.Span{Text: "I a m not a heading."}),
		},
	}

	out := renderPage(t, letterPage(block))
	assert.Contains(t, out, `<span style="color: #c00000">Mul</span>`)
	assert.Contains(t, out, "I a m not a heading.")
}

func TestRenderPage_SkipsHintedAndEmptyBlocks(t *testing.T) {
	page := letterPage(
		textBlock(50, 100, 400, 112, "Visible text."),
		textBlock(50, 120, 400, 132, "Hidden text.").WithHint(pdfhtml.SkipRender{}),
		textBlock(0, 0, 0, 0, "Zero box."),
		pdfhtml.Block{Kind: pdfhtml.BlockImage, Box: pdfhtml.Rect{X0: 50, Y0: 140, X1: 400, Y1: 300}},
	)

	assert.Equal(t, "<p>Visible text.</p>", renderPage(t, page))
}

func TestRenderPage_DropsPageNumbers(t *testing.T) {
	page := letterPage(
		textBlock(50, 100, 400, 112, "Body text."),
		textBlock(290, 750, 320, 762, "3 8"),
	)
	assert.Equal(t, "<p>Body text.</p>", renderPage(t, page))
}

func TestRenderPage_SequentialOrder(t *testing.T) {
	page := letterPage(
		textBlock(50, 100, 400, 112, "Shown second.").WithHint(pdfhtml.SequentialOrder{Order: 2}),
		textBlock(50, 200, 400, 212, "Shown first.").WithHint(pdfhtml.SequentialOrder{Order: 1}),
	)
	assert.Equal(t, "<p>Shown first.</p><p>Shown second.</p>", renderPage(t, page))
}

func TestRenderPage_ForceSingleColumnUsesEmissionOrder(t *testing.T) {
	page := letterPage(
		textBlock(50, 300, 400, 312, "Emitted first."),
		textBlock(50, 100, 400, 112, "Emitted second."),
	)
	assert.Equal(t, "<p>Emitted second.</p><p>Emitted first.</p>", renderPage(t, page))

	page.ForceSingleColumn = true
	assert.Equal(t, "<p>Emitted first.</p><p>Emitted second.</p>", renderPage(t, page))

	t.Run("two columns", func(t *testing.T) {
		page := letterPage(
			textBlock(320, 100, 550, 112, "Right emitted first."),
			textBlock(50, 300, 280, 312, "Left lower emitted second."),
			textBlock(50, 100, 280, 112, "Left top emitted third."),
		)
		require.Len(t, pdfhtml.DetectColumns(page, pdfhtml.DefaultLayoutSettings()), 2)

		page.ForceSingleColumn = true
		assert.Equal(t,
			"<p>Right emitted first.</p><p>Left lower emitted second.</p><p>Left top emitted third.</p>",
			renderPage(t, page))
	})
}

func TestRenderPage_ContinuationJoinsLastParagraphOfColumn(t *testing.T) {
	line := func(x0, y float64, text string) pdfhtml.Line {
		return pdfhtml.Line{
			Box:   pdfhtml.Rect{X0: x0, Y0: y, X1: x0 + 230, Y1: y + 12},
			Spans: []pdfhtml.Span{{Text: text, Font: "Helvetica", Size: 11}},
		}
	}
	block := pdfhtml.Block{
		Kind: pdfhtml.BlockText,
		Box:  pdfhtml.Rect{X0: 50, Y0: 100, X1: 550, Y1: 168},
		Lines: []pdfhtml.Line{
			line(50, 100, "First para line one"),
			line(50, 114, "ends here."),
			line(50, 142, "Second para starts and"),
			line(50, 156, "breaks at the"),
			line(320, 100, "column edge mid sentence."),
			line(320, 114, "More text."),
		},
	}

	assert.Equal(t,
		"<p>First para line one ends here.</p>"+
			"<p>Second para starts and breaks at the column edge mid sentence. More text.</p>",
		renderPage(t, letterPage(block)))
}

func TestRenderPage_ForceBreakStopsMerge(t *testing.T) {
	page := letterPage(
		textBlock(50, 100, 400, 112, "The report continues"),
		textBlock(50, 140, 400, 152, "on the next line.").WithHint(pdfhtml.ForceBreak{}),
	)
	assert.Equal(t,
		`<p>The report continues</p><p data-force-break="true">on the next line.</p>`,
		renderPage(t, page))
}

func TestRenderPage_BreakPrefixes(t *testing.T) {
	block := textBlock(50, 100, 400, 130, "Intro line.", "Step 2 follow up")
	config := quietConfig()

	out, err := pdfhtml.RenderPage(letterPage(block), config)
	require.NoError(t, err)
	assert.Equal(t, "<p>Intro line. Step 2 follow up</p>", out)

	config.BreakPrefixes = []string{"Step "}
	out, err = pdfhtml.RenderPage(letterPage(block), config)
	require.NoError(t, err)
	assert.Equal(t, "<p>Intro line.</p><p>Step 2 follow up</p>", out)
}

func TestRenderPage_AttachedTable(t *testing.T) {
	table := pdfhtml.TableFromRows([][]string{{"k", "v"}}, 0, pdfhtml.Rect{})
	page := letterPage(
		textBlock(50, 100, 400, 112, "Summary below.").WithHint(pdfhtml.AttachedTable{Slot: "summary", Table: table}),
	)
	assert.Equal(t, "<p>Summary below.</p><table><tr><td>k</td><td>v</td></tr></table>", renderPage(t, page))
}

func TestRenderPage_WrapPages(t *testing.T) {
	config := quietConfig()
	config.WrapPages = true

	page := letterPage(textBlock(50, 100, 400, 112, "Wrapped."))
	page.Number = 7
	out, err := pdfhtml.RenderPage(page, config)
	require.NoError(t, err)
	assert.Equal(t, `<section data-page="7"><p>Wrapped.</p></section>`, out)
}

func TestRenderPage_InvalidGeometry(t *testing.T) {
	page := letterPage(textBlock(50, 100, 400, 112, "text"))
	page.Blocks[0].Box.X0 = math.NaN()

	_, err := pdfhtml.RenderPage(page, quietConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid bounding box")

	page = letterPage()
	page.Width = math.Inf(1)
	_, err = pdfhtml.RenderPage(page, quietConfig())
	require.Error(t, err)
}

func TestRenderPage_DoesNotModifyPage(t *testing.T) {
	build := func() pdfhtml.Page {
		return letterPage(
			textBlock(50, 100, 280, 126, "Left one.", "left two."),
			textBlock(320, 100, 550, 126, "Right one."),
		)
	}

	page := build()
	renderPage(t, page)
	assert.Equal(t, build(), page)
}

func TestRenderPage_EmptyPage(t *testing.T) {
	assert.Equal(t, "", renderPage(t, letterPage()))
}

func TestRenderer_LogsLayoutDecisions(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	config := pdfhtml.DefaultConfig()
	config.Logger = logger

	page := letterPage(
		textBlock(50, 100, 280, 126, "Left."),
		textBlock(320, 100, 550, 126, "Right."),
	)
	_, err := pdfhtml.NewRenderer(config).RenderPage(page)
	require.NoError(t, err)

	var found bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Laying out page" {
			found = true
			assert.Equal(t, 2, entry.Data["columns"])
			assert.Equal(t, 1, entry.Data["page"])
		}
	}
	assert.True(t, found)
}

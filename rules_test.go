package pdfhtml_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanvanderbyl/pdfhtml"
)

func TestParseRules(t *testing.T) {
	rules, err := pdfhtml.ParseRules([]byte(`
rules:
  - {match: DRAFT, action: skip}
  - {page: 2, match: Introduction, action: heading, level: 3}
  - {match: Step, action: sequential, order: 4}
  - action: anchored-table
    table:
      labels: [A, B]
      columns: [{name: Value, x0: 100, x1: 200}]
`))
	require.NoError(t, err)
	require.Len(t, rules, 4)

	assert.Equal(t, pdfhtml.ActionSkip, rules[0].Action)
	assert.Equal(t, 2, rules[1].Page)
	assert.Equal(t, 3, rules[1].Level)
	assert.Equal(t, 4, rules[2].Order)
	require.NotNil(t, rules[3].Table)
	assert.Equal(t, []string{"A", "B"}, rules[3].Table.Labels)
	assert.Equal(t, 0.8, rules[3].Table.SpanRatio, "omitted window settings keep defaults")
}

func TestParseRules_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
	}{
		{"unknown action", "rules:\n  - {match: x, action: explode}\n", `rule 0: unknown action "explode"`},
		{"missing match", "rules:\n  - {match: ok, action: skip}\n  - {action: force-break}\n", "rule 1: action \"force-break\" needs a match"},
		{"table without columns", "rules:\n  - action: anchored-table\n    table: {labels: [A]}\n", "needs labels and columns"},
		{"table missing", "rules:\n  - {action: anchored-table}\n", "needs labels and columns"},
		{"bad yaml", "rules: [", "failed to parse rules"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pdfhtml.ParseRules([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - {match: x, action: list-item}\n"), 0o644))

	rules, err := pdfhtml.LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, pdfhtml.ActionListItem, rules[0].Action)

	_, err = pdfhtml.LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read rules file")
}

func TestRulesApply_Hints(t *testing.T) {
	page := letterPage(
		textBlock(50, 60, 400, 72, "DRAFT copy"),
		textBlock(50, 100, 400, 112, "Introduction"),
		textBlock(50, 130, 400, 142, "Body text."),
	)

	rules := pdfhtml.Rules{
		{Match: "DRAFT", Action: pdfhtml.ActionSkip},
		{Match: "Introduction", Action: pdfhtml.ActionHeading, Level: 2},
		{Match: "Body", Action: pdfhtml.ActionForceBreak},
		{Page: 2, Match: "Body", Action: pdfhtml.ActionFullWidth},
	}
	out := rules.Apply(page)

	assert.True(t, out.Blocks[0].HasHint(pdfhtml.SkipRender{}))
	assert.Equal(t, []pdfhtml.RenderHint{pdfhtml.Heading{Level: 2, Text: "Introduction"}}, out.Blocks[1].Hints)
	assert.True(t, out.Blocks[2].HasHint(pdfhtml.ForceBreak{}))
	assert.False(t, out.Blocks[2].HasHint(pdfhtml.FullWidth{}), "rule is scoped to another page")

	assert.Empty(t, page.Blocks[0].Hints, "input is not modified")

	html, err := pdfhtml.RenderPage(out, quietConfig())
	require.NoError(t, err)
	assert.NotContains(t, html, "DRAFT")
	assert.Contains(t, html, `<h2 id="header-introduction">Introduction`)
	assert.Contains(t, html, `<p data-force-break="true">Body text.</p>`)
}

func TestRulesApply_Replace(t *testing.T) {
	page := letterPage(textBlock(50, 100, 400, 112, "teh quick fox"))
	out := pdfhtml.Rules{{Match: "teh", Action: pdfhtml.ActionReplace, Replace: "the"}}.Apply(page)

	assert.Equal(t, "the quick fox", out.Blocks[0].Text())
	assert.Equal(t, "teh quick fox", page.Blocks[0].Text(), "input is not modified")
}

func TestRulesApply_SplitAt(t *testing.T) {
	page := letterPage(textBlock(50, 100, 400, 112, "The first part ends. Second part begins"))
	out := pdfhtml.Rules{{Match: "Second", Action: pdfhtml.ActionSplitAt}}.Apply(page)
	assert.Equal(t, "Second", out.Blocks[0].Lines[0].SplitAt)

	html, err := pdfhtml.RenderPage(out, quietConfig())
	require.NoError(t, err)
	assert.Equal(t, "<p>The first part ends.</p><p>Second part begins</p>", html)
}

func TestRulesApply_AnchoredTable(t *testing.T) {
	var blocks []pdfhtml.Block
	for _, cell := range anchoredCells() {
		blocks = append(blocks, pdfhtml.Block{
			Kind:  pdfhtml.BlockText,
			Box:   cell.Box,
			Lines: []pdfhtml.Line{{Box: cell.Box, Spans: []pdfhtml.Span{{Text: cell.Text}}}},
		})
	}
	page := letterPage(blocks...)

	spec := anchoredSpec()
	out := pdfhtml.Rules{{Action: pdfhtml.ActionAnchoredTable, Table: &spec}}.Apply(page)

	require.Len(t, out.Tables, 1)
	assert.Equal(t, "30 part\ncont", out.Tables[0].Matrix()[3][1])

	var kept []string
	for _, block := range out.Blocks {
		if !block.HasHint(pdfhtml.SkipRender{}) {
			kept = append(kept, block.Text())
		}
	}
	assert.Equal(t, []string{"stray"}, kept)
	assert.Empty(t, page.Tables)
}

func TestRulesApplyDocument_LogsMisses(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	first := letterPage(textBlock(50, 100, 400, 112, "Alpha"))
	second := letterPage(textBlock(50, 100, 400, 112, "Beta"))
	second.Number = 2

	rules := pdfhtml.Rules{
		{Match: "Gamma", Action: pdfhtml.ActionSkip},
		{Page: 2, Match: "Alpha", Action: pdfhtml.ActionSkip},
		{Page: 1, Match: "Alpha", Action: pdfhtml.ActionListItem},
	}
	doc := rules.ApplyDocument(pdfhtml.Document{Pages: []pdfhtml.Page{first, second}}, logger)

	require.Len(t, doc.Pages, 2)
	assert.True(t, doc.Pages[0].Blocks[0].HasHint(pdfhtml.ListItem{}))
	assert.Empty(t, doc.Pages[1].Blocks[0].Hints)

	entries := hook.AllEntries()
	require.Len(t, entries, 1, "unscoped misses are not logged")
	assert.Equal(t, "Rule matched nothing", entries[0].Message)
	assert.Equal(t, 2, entries[0].Data["page"])
	assert.Equal(t, 1, entries[0].Data["rule"])
}

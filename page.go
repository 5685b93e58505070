package pdfhtml

import (
	"fmt"
	"math"
	"slices"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type itemKind int

const (
	itemBlock itemKind = iota
	itemTable
)

// pageItem is one renderable unit of a page: a block or a page-level table.
type pageItem struct {
	kind  itemKind
	block Block
	table Table
	hints blockHints

	box    Rect
	width  float64
	center float64
	order  int
}

func (it pageItem) isTextBlock() bool {
	return it.kind == itemBlock && it.block.Kind == BlockText
}

// plain reports whether the item is a text block with nothing steering its
// rendering, so it may be coalesced with its neighbours.
func (it pageItem) plain() bool {
	return it.isTextBlock() && !it.hints.marked()
}

func (it pageItem) isFullWidth(g pageGeometry) bool {
	if !it.isTextBlock() || it.width >= g.fullWidthCutoff {
		return true
	}
	return it.hints.sequential || it.hints.fullWidth
}

// collectPageItems returns the page's blocks and, when includeTables is
// set, its page-level tables. Skipped and zero-area blocks are dropped.
func collectPageItems(page Page, includeTables bool) []pageItem {
	items := make([]pageItem, 0, len(page.Blocks)+len(page.Tables))
	for i, block := range page.Blocks {
		hints := decodeHints(block.Hints)
		if hints.skip || block.Box.IsZero() {
			continue
		}
		order := i
		if hints.sequential {
			order = hints.order
		}
		items = append(items, pageItem{
			kind:   itemBlock,
			block:  block,
			hints:  hints,
			box:    block.Box,
			width:  block.Box.Width(),
			center: block.Box.CenterX(),
			order:  order,
		})
	}

	if !includeTables {
		return items
	}
	for i, table := range page.Tables {
		if table.Skip || len(table.Rows) == 0 {
			continue
		}
		items = append(items, pageItem{
			kind:   itemTable,
			table:  table,
			box:    table.Box,
			width:  table.Box.Width(),
			center: table.Box.CenterX(),
			order:  len(page.Blocks) + i,
		})
	}
	return items
}

func sortItemsByPosition(items []pageItem) {
	slices.SortStableFunc(items, func(a, b pageItem) int {
		if c := compareFloat(a.box.Y0, b.box.Y0); c != 0 {
			return c
		}
		if c := compareFloat(a.box.X0, b.box.X0); c != 0 {
			return c
		}
		return a.order - b.order
	})
}

func sortItemsByOrder(items []pageItem) {
	slices.SortStableFunc(items, func(a, b pageItem) int {
		return a.order - b.order
	})
}

// Renderer turns pages of positioned text into HTML.
type Renderer struct {
	cfg Config
}

// NewRenderer creates a renderer. Zero layout and matrix settings are
// replaced by their defaults.
func NewRenderer(cfg Config) *Renderer {
	if cfg.Layout == (LayoutSettings{}) {
		cfg.Layout = DefaultLayoutSettings()
	}
	if cfg.Matrix == (MatrixOptions{}) {
		cfg.Matrix = DefaultMatrixOptions()
	}
	return &Renderer{cfg: cfg}
}

// RenderPage renders one page. Columns are resolved first, full-width
// items are sequenced against the column flow, and paragraphs split
// across blocks are merged. With WrapPages the result is wrapped in a
// section tagged with the page number.
//
// The page is not modified. An error is returned only for pages carrying
// NaN or infinite geometry.
func (r *Renderer) RenderPage(page Page) (string, error) {
	fragments, err := r.renderPageFragments(page)
	if err != nil {
		return "", err
	}
	return r.wrapPage(page, RenderFragments(fragments)), nil
}

func (r *Renderer) wrapPage(page Page, body string) string {
	if !r.cfg.WrapPages {
		return body
	}
	return fmt.Sprintf(`<section data-page="%d">%s</section>`, page.Number, body)
}

func validatePage(page Page) error {
	if math.IsNaN(page.Width) || math.IsInf(page.Width, 0) || math.IsNaN(page.Height) || math.IsInf(page.Height, 0) {
		return errors.Errorf("page %d: invalid page size %vx%v", page.Number, page.Width, page.Height)
	}
	for i, block := range page.Blocks {
		if !block.Box.valid() {
			return errors.Errorf("page %d: invalid bounding box on block %d", page.Number, i)
		}
		for j, line := range block.Lines {
			if !line.Box.valid() {
				return errors.Errorf("page %d: invalid bounding box on block %d line %d", page.Number, i, j)
			}
		}
	}
	for i, table := range page.Tables {
		if !table.Box.valid() {
			return errors.Errorf("page %d: invalid bounding box on table %d", page.Number, i)
		}
	}
	return nil
}

// renderPageFragments produces the merged fragment sequence of one page.
func (r *Renderer) renderPageFragments(page Page) ([]Fragment, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	page = page.clone()

	cfg := r.cfg
	log := cfg.logger().WithField("page", page.Number)

	items := collectPageItems(page, cfg.IncludeTables)
	geometry := newPageGeometry(page.Width, cfg.Layout)
	var columns []float64
	if !page.ForceSingleColumn {
		columns = detectColumnCenters(items, page.Width, cfg.Layout)
	}

	log.WithFields(logrus.Fields{
		"items":   len(items),
		"columns": len(columns),
	}).Debug("Laying out page")

	var fragments []Fragment
	if len(columns) <= 1 {
		fragments = r.renderSingleColumn(page, items)
	} else {
		fragments = r.renderColumns(items, columns, geometry)
	}

	return mergeParagraphs(fragments, pageMergeRule(cfg.Layout)), nil
}

func (r *Renderer) renderSingleColumn(page Page, items []pageItem) []Fragment {
	sequential := page.ForceSingleColumn || slices.ContainsFunc(items, func(it pageItem) bool {
		return it.hints.sequential
	})
	if sequential {
		sortItemsByOrder(items)
	} else {
		sortItemsByPosition(items)
	}

	var fragments []Fragment
	for _, item := range items {
		fragments = append(fragments, r.renderItem(item)...)
	}
	return fragments
}

func (r *Renderer) renderColumns(items []pageItem, columns []float64, g pageGeometry) []Fragment {
	var full []pageItem
	buckets := make([][]pageItem, len(columns))
	for _, item := range items {
		if item.isFullWidth(g) {
			full = append(full, item)
			continue
		}
		idx := NearestCentroid(columns, item.center)
		buckets[idx] = append(buckets[idx], item)
	}
	sortItemsByPosition(full)

	var fragments []Fragment
	consumeFull := func(y float64) {
		for len(full) > 0 && full[0].box.Y0 <= y {
			fragments = append(fragments, r.renderItem(full[0])...)
			full = full[1:]
		}
	}

	for _, bucket := range buckets {
		sortItemsByPosition(bucket)
		for _, item := range coalesceColumn(bucket) {
			consumeFull(item.box.Y0)
			fragments = append(fragments, r.renderItem(item)...)
		}
	}
	consumeFull(math.Inf(1))

	return fragments
}

// coalesceColumn merges runs of consecutive plain text blocks in one column
// into a single block. Every block that comes out is column assigned.
func coalesceColumn(items []pageItem) []pageItem {
	out := make([]pageItem, 0, len(items))
	for _, item := range items {
		if item.kind == itemBlock {
			item.block = item.block.WithHint(ColumnAssigned{})
			item.hints.columnAssigned = true
		}

		if n := len(out); n > 0 && item.plain() && out[n-1].plain() {
			prev := &out[n-1]
			prev.block.Lines = append(slices.Clone(prev.block.Lines), item.block.Lines...)
			prev.block.Box = prev.block.Box.Union(item.block.Box)
			prev.box = prev.block.Box
			prev.width = prev.box.Width()
			prev.center = prev.box.CenterX()
			continue
		}
		out = append(out, item)
	}
	return out
}

func (r *Renderer) renderItem(item pageItem) []Fragment {
	if item.kind == itemTable {
		tableHTML := RenderTable(item.table, r.cfg.TableClass)
		if tableHTML == "" {
			return nil
		}
		return []Fragment{{Kind: FragmentTable, HTML: tableHTML}}
	}
	return renderBlock(item.block, item.hints, r.cfg)
}

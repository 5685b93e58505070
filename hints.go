package pdfhtml

// RenderHint is a transient annotation on a block or table. Hints steer
// rendering for one call and are never persisted. The set of hints is
// closed; consumers switch on the concrete type.
type RenderHint interface {
	renderHint()
}

// SkipRender suppresses a block entirely.
type SkipRender struct{}

// ForceBreak starts a new paragraph at the block and blocks merging it into
// the paragraph before.
type ForceBreak struct{}

// Heading renders the block as a heading element.
type Heading struct {
	Level int
	Text  string
}

// AttachedTable renders Table after the block's paragraphs. Slot names the
// attachment point so several tables can hang off one block.
type AttachedTable struct {
	Slot  string
	Table Table
}

// SequentialOrder keeps the block at its emission position instead of
// sorting it by geometry.
type SequentialOrder struct {
	Order int
}

// FullWidth places a block outside the column flow.
type FullWidth struct{}

// ListItem renders the block as a list item; runs of items are wrapped in a
// list container.
type ListItem struct{}

// KeepHeading stops MergeLines from splitting a colored lead-in span off
// the rest of a line.
type KeepHeading struct{}

// ColumnAssigned marks a block whose lines already belong to one column.
type ColumnAssigned struct{}

func (SkipRender) renderHint()      {}
func (ForceBreak) renderHint()      {}
func (Heading) renderHint()         {}
func (AttachedTable) renderHint()   {}
func (SequentialOrder) renderHint() {}
func (FullWidth) renderHint()       {}
func (ListItem) renderHint()        {}
func (KeepHeading) renderHint()     {}
func (ColumnAssigned) renderHint()  {}

// blockHints is the decoded view of a hint list.
type blockHints struct {
	skip           bool
	forceBreak     bool
	heading        *Heading
	tables         []AttachedTable
	sequential     bool
	order          int
	fullWidth      bool
	listItem       bool
	keepHeading    bool
	columnAssigned bool
}

func decodeHints(hints []RenderHint) blockHints {
	var bh blockHints
	for _, hint := range hints {
		switch h := hint.(type) {
		case SkipRender:
			bh.skip = true
		case ForceBreak:
			bh.forceBreak = true
		case Heading:
			bh.heading = &h
		case AttachedTable:
			bh.tables = append(bh.tables, h)
		case SequentialOrder:
			bh.sequential = true
			bh.order = h.Order
		case FullWidth:
			bh.fullWidth = true
		case ListItem:
			bh.listItem = true
		case KeepHeading:
			bh.keepHeading = true
		case ColumnAssigned:
			bh.columnAssigned = true
		}
	}
	return bh
}

// marked reports whether the block carries any hint that keeps it from
// being coalesced with its neighbours.
func (bh blockHints) marked() bool {
	return bh.forceBreak || bh.heading != nil || len(bh.tables) > 0 || bh.sequential ||
		bh.fullWidth || bh.listItem || bh.keepHeading
}

// HasHint reports whether the block carries a hint of the same type as h.
func (b Block) HasHint(h RenderHint) bool {
	for _, hint := range b.Hints {
		if sameHintType(hint, h) {
			return true
		}
	}
	return false
}

// WithHint returns a copy of the block with h appended to its hints.
func (b Block) WithHint(h RenderHint) Block {
	hints := make([]RenderHint, 0, len(b.Hints)+1)
	hints = append(hints, b.Hints...)
	b.Hints = append(hints, h)
	return b
}

func sameHintType(a, b RenderHint) bool {
	switch a.(type) {
	case SkipRender:
		_, ok := b.(SkipRender)
		return ok
	case ForceBreak:
		_, ok := b.(ForceBreak)
		return ok
	case Heading:
		_, ok := b.(Heading)
		return ok
	case AttachedTable:
		_, ok := b.(AttachedTable)
		return ok
	case SequentialOrder:
		_, ok := b.(SequentialOrder)
		return ok
	case FullWidth:
		_, ok := b.(FullWidth)
		return ok
	case ListItem:
		_, ok := b.(ListItem)
		return ok
	case KeepHeading:
		_, ok := b.(KeepHeading)
		return ok
	case ColumnAssigned:
		_, ok := b.(ColumnAssigned)
		return ok
	}
	return false
}

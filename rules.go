package pdfhtml

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// RuleAction names what a rule does to the blocks it matches.
type RuleAction string

const (
	ActionSkip          RuleAction = "skip"
	ActionForceBreak    RuleAction = "force-break"
	ActionHeading       RuleAction = "heading"
	ActionSequential    RuleAction = "sequential"
	ActionFullWidth     RuleAction = "full-width"
	ActionListItem      RuleAction = "list-item"
	ActionKeepHeading   RuleAction = "keep-heading"
	ActionSplitAt       RuleAction = "split-at"
	ActionReplace       RuleAction = "replace"
	ActionAnchoredTable RuleAction = "anchored-table"
)

// Rule is one document-specific fixup. Rules keep literal text out of the
// layout code: they only attach hints to the blocks whose text contains
// Match, or rewrite span text.
type Rule struct {
	// Page restricts the rule to one page number. Zero matches every page.
	Page   int        `yaml:"page"`
	Match  string     `yaml:"match"`
	Action RuleAction `yaml:"action"`

	// Replace is the replacement text for replace, and the heading text
	// for heading (empty uses the block text).
	Replace string `yaml:"replace"`

	// Level is the heading level.
	Level int `yaml:"level"`

	// Order is the emission position for sequential.
	Order int `yaml:"order"`

	// Table describes the table built by anchored-table.
	Table *AnchoredTable `yaml:"table"`
}

// Rules is an ordered rule table.
type Rules []Rule

type rulesFile struct {
	Rules Rules `yaml:"rules"`
}

// ParseRules decodes a YAML rule table.
func ParseRules(data []byte) (Rules, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "failed to parse rules")
	}
	for i, rule := range file.Rules {
		if err := rule.validate(); err != nil {
			return nil, errors.Wrapf(err, "rule %d", i)
		}
	}
	return file.Rules, nil
}

// LoadRules reads a YAML rule table from a file.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rules file")
	}
	return ParseRules(data)
}

func (r Rule) validate() error {
	switch r.Action {
	case ActionSkip, ActionForceBreak, ActionHeading, ActionSequential, ActionFullWidth,
		ActionListItem, ActionKeepHeading, ActionSplitAt, ActionReplace:
		if r.Match == "" {
			return errors.Errorf("action %q needs a match", r.Action)
		}
	case ActionAnchoredTable:
		if r.Table == nil || len(r.Table.Labels) == 0 || len(r.Table.Columns) == 0 {
			return errors.New("anchored-table needs labels and columns")
		}
	default:
		return errors.Errorf("unknown action %q", r.Action)
	}
	return nil
}

func (r Rule) appliesTo(page Page) bool {
	return r.Page == 0 || r.Page == page.Number
}

// Apply returns an annotated copy of the page. Rules run in order; a rule
// whose match is absent changes nothing.
func (rs Rules) Apply(page Page) Page {
	out, _ := rs.apply(page)
	return out
}

// ApplyDocument applies the rules to every page and logs rules that were
// scoped to a page but matched nothing there.
func (rs Rules) ApplyDocument(doc Document, log logrus.FieldLogger) Document {
	out := Document{Pages: make([]Page, len(doc.Pages))}
	for i, page := range doc.Pages {
		annotated, missed := rs.apply(page)
		for _, idx := range missed {
			if rs[idx].Page != 0 {
				log.WithFields(logrus.Fields{
					"page":   page.Number,
					"rule":   idx,
					"action": rs[idx].Action,
					"match":  rs[idx].Match,
				}).Debug("Rule matched nothing")
			}
		}
		out.Pages[i] = annotated
	}
	return out
}

func (rs Rules) apply(page Page) (Page, []int) {
	page = page.clone()
	var missed []int
	for idx, rule := range rs {
		if !rule.appliesTo(page) {
			continue
		}
		if !rule.applyTo(&page) {
			missed = append(missed, idx)
		}
	}
	return page, missed
}

func (r Rule) applyTo(page *Page) bool {
	switch r.Action {
	case ActionReplace:
		return r.replaceText(page)
	case ActionSplitAt:
		return r.splitLines(page)
	case ActionAnchoredTable:
		return r.buildTable(page)
	}

	hit := false
	for i, block := range page.Blocks {
		text := NormalizeText(block.Text())
		if !strings.Contains(text, r.Match) {
			continue
		}
		hit = true

		switch r.Action {
		case ActionSkip:
			page.Blocks[i] = block.WithHint(SkipRender{})
		case ActionForceBreak:
			page.Blocks[i] = block.WithHint(ForceBreak{})
		case ActionHeading:
			heading := r.Replace
			if heading == "" {
				heading = text
			}
			page.Blocks[i] = block.WithHint(Heading{Level: r.Level, Text: heading})
		case ActionSequential:
			page.Blocks[i] = block.WithHint(SequentialOrder{Order: r.Order})
		case ActionFullWidth:
			page.Blocks[i] = block.WithHint(FullWidth{})
		case ActionListItem:
			page.Blocks[i] = block.WithHint(ListItem{})
		case ActionKeepHeading:
			page.Blocks[i] = block.WithHint(KeepHeading{})
		}
	}
	return hit
}

// replaceText rewrites Match inside single spans.
func (r Rule) replaceText(page *Page) bool {
	hit := false
	for i := range page.Blocks {
		for j := range page.Blocks[i].Lines {
			spans := page.Blocks[i].Lines[j].Spans
			for k := range spans {
				if strings.Contains(spans[k].Text, r.Match) {
					spans[k].Text = strings.ReplaceAll(spans[k].Text, r.Match, r.Replace)
					hit = true
				}
			}
		}
	}
	return hit
}

// splitLines marks lines containing Match to be split before the sentence
// that holds it.
func (r Rule) splitLines(page *Page) bool {
	hit := false
	for i := range page.Blocks {
		for j, line := range page.Blocks[i].Lines {
			if strings.Contains(line.Text(), r.Match) {
				page.Blocks[i].Lines[j].SplitAt = r.Match
				hit = true
			}
		}
	}
	return hit
}

// buildTable rebuilds a row-anchored table from the page's lines. Blocks
// inside the table area are skipped and the table is added to the page.
func (r Rule) buildTable(page *Page) bool {
	indices := make([]int, 0, len(page.Blocks))
	for i, block := range page.Blocks {
		if !block.HasHint(SkipRender{}) {
			indices = append(indices, i)
		}
	}

	table, ok := BuildAnchoredTable(CollectCells(*page, indices), *r.Table)
	if !ok {
		return false
	}

	area := expandRect(table.Box, 1)
	for _, i := range indices {
		if rectContains(area, page.Blocks[i].Box) {
			page.Blocks[i] = page.Blocks[i].WithHint(SkipRender{})
		}
	}
	page.Tables = append(page.Tables, table)
	return true
}

package pdfhtml

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/net/html"
)

const backToTop = `<a href="#top" style="font-size: 0.8em; text-decoration: none;">[^]</a>`

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// isDefaultColor reports whether a span color is body text. Unparseable
// colors are compared literally.
func isDefaultColor(color string) bool {
	if color == "" {
		return true
	}
	parsed, err := colorful.Hex(color)
	if err != nil {
		return strings.EqualFold(color, DefaultColor)
	}
	return parsed.Hex() == DefaultColor
}

// cssColor returns the canonical #rrggbb form of a color.
func cssColor(color string) string {
	parsed, err := colorful.Hex(color)
	if err != nil {
		return color
	}
	return parsed.Hex()
}

// renderSpan wraps escaped text in the inline markup for its style.
func renderSpan(text string, bold, italic bool, color string) string {
	content := html.EscapeString(text)
	if content == "" {
		return ""
	}
	if bold {
		content = "<strong>" + content + "</strong>"
	}
	if italic {
		content = "<em>" + content + "</em>"
	}
	if !isDefaultColor(color) {
		content = fmt.Sprintf(`<span style="color: %s">%s</span>`, html.EscapeString(cssColor(color)), content)
	}
	return content
}

// renderLine renders a line's spans with inline styling. Span text is
// normalized; a space is kept between spans when the source had one.
func renderLine(line Line) string {
	var sb strings.Builder
	pendingSpace := false
	for _, span := range line.Spans {
		if span.Text == "" {
			continue
		}
		if strings.TrimLeftFunc(span.Text, unicode.IsSpace) != span.Text {
			pendingSpace = true
		}

		text := NormalizeText(span.Text)
		if !span.HasDefaultColor() {
			text = normalizeHeadingText(span.Text)
		}
		if text != "" {
			if sb.Len() > 0 && pendingSpace {
				sb.WriteByte(' ')
			}
			sb.WriteString(renderSpan(text, span.IsBold(), span.IsItalic(), span.Color))
			pendingSpace = false
		}

		if strings.TrimRightFunc(span.Text, unicode.IsSpace) != span.Text {
			pendingSpace = true
		}
	}
	return sb.String()
}

// linePlainText returns the normalized text of a line.
func linePlainText(line Line) string {
	if isHeadingLine(line) {
		return normalizeHeadingText(line.Text())
	}
	return NormalizeText(line.Text())
}

// headingSlug builds the id used for heading anchors.
func headingSlug(text string) string {
	return "header-" + strings.Trim(slugRe.ReplaceAllString(strings.ToLower(text), "-"), "-")
}

// renderHeading renders a heading element with its anchor id and a back to
// top link. Levels are clamped to h2..h4.
func renderHeading(level int, text string) string {
	level = max(2, min(level, 4))
	return fmt.Sprintf(`<h%d id="%s">%s %s</h%d>`,
		level, headingSlug(text), html.EscapeString(text), backToTop, level)
}

// RenderTable renders a table. Rows before HeaderRows use th cells. Cells
// with no text render as &nbsp; and rows with no cells are dropped. The
// table's own class wins over tableClass. A table without rows renders as
// the empty string.
func RenderTable(table Table, tableClass string) string {
	var rows strings.Builder
	for rowIndex, row := range table.Rows {
		if len(row.Cells) == 0 {
			continue
		}

		tag := "td"
		if rowIndex < table.HeaderRows {
			tag = "th"
		}

		rows.WriteString("<tr>")
		for _, cell := range row.Cells {
			var attrs strings.Builder
			if cell.RowSpan > 1 {
				fmt.Fprintf(&attrs, ` rowspan="%d"`, cell.RowSpan)
			}
			if cell.ColSpan > 1 {
				fmt.Fprintf(&attrs, ` colspan="%d"`, cell.ColSpan)
			}

			contents := "&nbsp;"
			if text := DehyphenateText(cell.Text); text != "" {
				contents = html.EscapeString(text)
				if cell.Bold {
					contents = "<strong>" + contents + "</strong>"
				}
			}
			fmt.Fprintf(&rows, "<%s%s>%s</%s>", tag, attrs.String(), contents, tag)
		}
		rows.WriteString("</tr>")
	}

	if rows.Len() == 0 {
		return ""
	}

	class := table.Class
	if class == "" {
		class = tableClass
	}
	if class != "" {
		return fmt.Sprintf(`<table class="%s">%s</table>`, html.EscapeString(class), rows.String())
	}
	return "<table>" + rows.String() + "</table>"
}

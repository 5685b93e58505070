package pdfhtml

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// HTMLToMarkdown converts rendered HTML to Markdown. Back-to-top links
// inside headings are dropped first since they have no Markdown meaning.
func HTMLToMarkdown(content string) (string, error) {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse HTML")
	}
	dom.Find(`a[href="#top"]`).Remove()

	body, err := dom.Find("body").Html()
	if err != nil {
		return "", errors.Wrap(err, "failed to serialize HTML")
	}

	markdown, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert HTML to markdown")
	}
	return strings.TrimSpace(markdown) + "\n", nil
}

// ToMarkdown renders the document and converts the result to Markdown.
func (d Document) ToMarkdown(config Config) (string, error) {
	content, err := RenderDocument(d, config)
	if err != nil {
		return "", err
	}
	return HTMLToMarkdown(content)
}

// ConvertFileToMarkdown converts a PDF file to Markdown.
func (c *Converter) ConvertFileToMarkdown(filePath string) (string, error) {
	content, err := c.ConvertFile(filePath)
	if err != nil {
		return "", err
	}
	return HTMLToMarkdown(content)
}

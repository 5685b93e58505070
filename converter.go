package pdfhtml

import (
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// ProcessingMetrics contains timing and statistics for PDF conversion
type ProcessingMetrics struct {
	TotalTime       time.Duration
	DocumentOpen    time.Duration
	PageExtractions []PageMetrics
	Render          time.Duration
	Statistics      DocumentStatistics
}

// PageMetrics contains timing for a single page
type PageMetrics struct {
	PageNumber int
	Duration   time.Duration
	Blocks     int
	Tables     int
}

// DocumentStatistics contains document-level statistics. Block counts come
// from the extracted pages, the rest from the rendered HTML.
type DocumentStatistics struct {
	TotalPages      int
	TotalBlocks     int
	TotalParagraphs int
	TotalHeadings   int
	TotalTables     int
	TotalListItems  int
	TotalWords      int
	TotalCharacters int
}

// Converter converts PDFs to HTML using pdfium text extraction.
//
// A pdfium instance is not safe for concurrent use, so a Converter must not
// be shared between goroutines.
type Converter struct {
	instance pdfium.Pdfium
	config   Config
	rules    Rules
}

// NewConverter creates a new PDF to HTML converter with default configuration.
func NewConverter(instance pdfium.Pdfium) *Converter {
	return NewConverterWithConfig(instance, DefaultConfig())
}

// NewConverterWithConfig creates a new PDF to HTML converter with custom configuration.
func NewConverterWithConfig(instance pdfium.Pdfium, config Config) *Converter {
	return &Converter{
		instance: instance,
		config:   config,
	}
}

// WithRules sets the per-document fixups applied to extracted pages before
// rendering.
func (c *Converter) WithRules(rules Rules) *Converter {
	c.rules = rules
	return c
}

func (c *Converter) open(request *requests.OpenDocument) (references.FPDF_DOCUMENT, func(), error) {
	doc, err := c.instance.OpenDocument(request)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to open PDF document")
	}
	closeDoc := func() {
		c.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
			Document: doc.Document,
		})
	}
	return doc.Document, closeDoc, nil
}

// ConvertFile converts a PDF file to HTML.
func (c *Converter) ConvertFile(filePath string) (string, error) {
	doc, err := c.ExtractFile(filePath)
	if err != nil {
		return "", err
	}
	return c.render(doc)
}

// ConvertBytes converts PDF bytes to HTML.
func (c *Converter) ConvertBytes(pdfBytes []byte) (string, error) {
	docRef, closeDoc, err := c.open(&requests.OpenDocument{File: &pdfBytes})
	if err != nil {
		return "", err
	}
	defer closeDoc()

	doc, _, err := c.extractDocument(docRef, 0, -1)
	if err != nil {
		return "", err
	}
	return c.render(doc)
}

// ConvertReader converts a PDF from an io.ReadSeeker to HTML.
func (c *Converter) ConvertReader(reader io.ReadSeeker) (string, error) {
	size, err := reader.Seek(0, io.SeekEnd)
	if err != nil {
		return "", errors.Wrap(err, "failed to measure PDF reader")
	}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "failed to rewind PDF reader")
	}

	docRef, closeDoc, err := c.open(&requests.OpenDocument{
		FileReader:     reader,
		FileReaderSize: size,
	})
	if err != nil {
		return "", err
	}
	defer closeDoc()

	doc, _, err := c.extractDocument(docRef, 0, -1)
	if err != nil {
		return "", err
	}
	return c.render(doc)
}

// ConvertPageRange converts pages startPage..endPage (0-indexed, inclusive)
// to HTML. A negative endPage means the last page.
func (c *Converter) ConvertPageRange(filePath string, startPage, endPage int) (string, error) {
	docRef, closeDoc, err := c.open(&requests.OpenDocument{FilePath: &filePath})
	if err != nil {
		return "", err
	}
	defer closeDoc()

	doc, _, err := c.extractDocument(docRef, startPage, endPage)
	if err != nil {
		return "", err
	}
	return c.render(doc)
}

// ExtractFile extracts the page model of every page without rendering it.
// The result can be dumped as JSON, annotated with rules, or rendered later.
func (c *Converter) ExtractFile(filePath string) (Document, error) {
	docRef, closeDoc, err := c.open(&requests.OpenDocument{FilePath: &filePath})
	if err != nil {
		return Document{}, err
	}
	defer closeDoc()

	doc, _, err := c.extractDocument(docRef, 0, -1)
	return doc, err
}

// ConvertFileWithMetrics converts a PDF and returns both HTML and metrics
func (c *Converter) ConvertFileWithMetrics(filePath string) (string, ProcessingMetrics, error) {
	startTime := time.Now()

	docRef, closeDoc, err := c.open(&requests.OpenDocument{FilePath: &filePath})
	if err != nil {
		return "", ProcessingMetrics{}, err
	}
	defer closeDoc()
	documentOpenTime := time.Since(startTime)

	doc, pageMetrics, err := c.extractDocument(docRef, 0, -1)
	if err != nil {
		return "", ProcessingMetrics{}, err
	}

	renderStart := time.Now()
	out, err := c.render(doc)
	if err != nil {
		return "", ProcessingMetrics{}, err
	}

	stats, err := calculateDocumentStatistics(doc, out)
	if err != nil {
		return "", ProcessingMetrics{}, err
	}

	metrics := ProcessingMetrics{
		TotalTime:       time.Since(startTime),
		DocumentOpen:    documentOpenTime,
		PageExtractions: pageMetrics,
		Render:          time.Since(renderStart),
		Statistics:      stats,
	}
	if c.config.EnableMetricsLogging {
		logProcessingMetrics(c.config.logger(), metrics)
	}
	return out, metrics, nil
}

// extractDocument extracts pages startPage..endPage. A negative endPage, or
// one past the last page, is clamped to the last page.
func (c *Converter) extractDocument(docRef references.FPDF_DOCUMENT, startPage, endPage int) (Document, []PageMetrics, error) {
	pageCount, err := c.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: docRef,
	})
	if err != nil {
		return Document{}, nil, errors.Wrap(err, "failed to get page count")
	}

	if startPage < 0 {
		startPage = 0
	}
	if endPage < 0 || endPage >= pageCount.PageCount {
		endPage = pageCount.PageCount - 1
	}
	if pageCount.PageCount > 0 && startPage > endPage {
		return Document{}, nil, errors.New("invalid page range: start page must be <= end page")
	}

	log := c.config.logger()
	document := Document{Pages: make([]Page, 0, endPage-startPage+1)}
	var pageMetrics []PageMetrics
	for i := startPage; i <= endPage; i++ {
		pageStart := time.Now()
		page, err := c.extractPage(docRef, i)
		if err != nil {
			return Document{}, nil, errors.Wrapf(err, "failed to extract page %d", i+1)
		}
		document.Pages = append(document.Pages, page)

		pm := PageMetrics{
			PageNumber: i + 1,
			Duration:   time.Since(pageStart),
			Blocks:     len(page.Blocks),
			Tables:     len(page.Tables),
		}
		pageMetrics = append(pageMetrics, pm)

		if c.config.EnableMetricsLogging {
			log.WithFields(logrus.Fields{
				"page":     pm.PageNumber,
				"pages":    pageCount.PageCount,
				"duration": pm.Duration,
				"blocks":   pm.Blocks,
				"tables":   pm.Tables,
			}).Info("Page extracted")
		}
	}

	return document, pageMetrics, nil
}

// extractPage extracts a single page with all its structure.
func (c *Converter) extractPage(docRef references.FPDF_DOCUMENT, pageIndex int) (Page, error) {
	pageResp, err := c.instance.FPDF_LoadPage(&requests.FPDF_LoadPage{
		Document: docRef,
		Index:    pageIndex,
	})
	if err != nil {
		return Page{}, errors.Wrap(err, "failed to load page")
	}
	defer c.instance.FPDF_ClosePage(&requests.FPDF_ClosePage{
		Page: pageResp.Page,
	})

	page, err := ExtractPage(c.instance, pageResp.Page, pageIndex+1, c.config)
	if err != nil {
		return Page{}, errors.Wrap(err, "failed to extract page content")
	}
	return page, nil
}

func (c *Converter) render(doc Document) (string, error) {
	if len(c.rules) > 0 {
		doc = c.rules.ApplyDocument(doc, c.config.logger())
	}
	return NewRenderer(c.config).RenderDocument(doc)
}

// calculateDocumentStatistics counts what the document rendered to.
func calculateDocumentStatistics(doc Document, out string) (DocumentStatistics, error) {
	stats := DocumentStatistics{TotalPages: len(doc.Pages)}
	for _, page := range doc.Pages {
		for _, block := range page.Blocks {
			if !block.HasHint(SkipRender{}) {
				stats.TotalBlocks++
			}
		}
	}

	dom, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	if err != nil {
		return stats, errors.Wrap(err, "failed to parse rendered HTML")
	}
	stats.TotalParagraphs = dom.Find("p").Length()
	stats.TotalHeadings = dom.Find("h1, h2, h3, h4, h5, h6").Length()
	stats.TotalTables = dom.Find("table").Length()
	stats.TotalListItems = dom.Find("li").Length()

	// Adjacent elements have no whitespace between them, so words are
	// counted per text node.
	dom.Find("body").Each(func(_ int, body *goquery.Selection) {
		for _, node := range body.Nodes {
			countWords(node, &stats)
		}
	})
	return stats, nil
}

func countWords(n *html.Node, stats *DocumentStatistics) {
	if n.Type == html.TextNode {
		for _, word := range strings.Fields(n.Data) {
			stats.TotalWords++
			stats.TotalCharacters += utf8.RuneCountInString(word)
		}
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		countWords(child, stats)
	}
}

// logProcessingMetrics logs one entry per page and a document summary.
func logProcessingMetrics(log logrus.FieldLogger, metrics ProcessingMetrics) {
	for _, pm := range metrics.PageExtractions {
		log.WithFields(logrus.Fields{
			"page":     pm.PageNumber,
			"duration": pm.Duration.Round(time.Millisecond),
		}).Debug("Page timing")
	}

	fields := logrus.Fields{
		"total":      metrics.TotalTime.Round(time.Millisecond),
		"open":       metrics.DocumentOpen.Round(time.Millisecond),
		"render":     metrics.Render.Round(time.Millisecond),
		"pages":      metrics.Statistics.TotalPages,
		"blocks":     metrics.Statistics.TotalBlocks,
		"paragraphs": metrics.Statistics.TotalParagraphs,
		"headings":   metrics.Statistics.TotalHeadings,
		"tables":     metrics.Statistics.TotalTables,
		"list_items": metrics.Statistics.TotalListItems,
		"words":      metrics.Statistics.TotalWords,
		"characters": metrics.Statistics.TotalCharacters,
	}
	if n := len(metrics.PageExtractions); n > 0 {
		fields["per_page"] = (metrics.TotalTime / time.Duration(n)).Round(time.Millisecond)
	}
	log.WithFields(fields).Info("PDF processing metrics")
}

// GetDocumentInfo returns basic information about a PDF without converting it.
func (c *Converter) GetDocumentInfo(filePath string) (*DocumentInfo, error) {
	docRef, closeDoc, err := c.open(&requests.OpenDocument{FilePath: &filePath})
	if err != nil {
		return nil, err
	}
	defer closeDoc()

	pageCount, err := c.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: docRef,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get page count")
	}

	return &DocumentInfo{
		PageCount: pageCount.PageCount,
	}, nil
}

// DocumentInfo contains basic information about a PDF document.
type DocumentInfo struct {
	PageCount int
}

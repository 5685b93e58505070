package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klippa-app/go-pdfium/webassembly"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/ivanvanderbyl/pdfhtml"
)

func main() {
	cmd := &cli.Command{
		Name:  "pdfhtml",
		Usage: "Convert PDF files or JSON page dumps to semantic HTML",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Input PDF file, or a .json page dump",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: stdout)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: html, markdown or json",
				Value:   "html",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "rules",
				Usage: "YAML rule table of per-document fixups",
			},
			&cli.BoolFlag{
				Name:  "wrap-pages",
				Usage: "Wrap each page in a <section> element",
			},
			&cli.BoolFlag{
				Name:  "tables",
				Usage: "Detect and render tables",
				Value: true,
			},
			&cli.IntFlag{
				Name:  "start-page",
				Usage: "Start page number (0-indexed)",
				Value: -1,
			},
			&cli.IntFlag{
				Name:  "end-page",
				Usage: "End page number (0-indexed)",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log layout decisions",
			},
		},
		Action: convert,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func convert(_ context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	switch format {
	case "html", "markdown", "md", "json":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var rules pdfhtml.Rules
	if path := cmd.String("rules"); path != "" {
		rules, err = pdfhtml.LoadRules(path)
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
	}

	inputPath := cmd.String("input")
	var doc pdfhtml.Document
	if strings.EqualFold(filepath.Ext(inputPath), ".json") {
		doc, err = loadDump(inputPath)
	} else {
		doc, err = extractPDF(inputPath, config)
	}
	if err != nil {
		return err
	}
	doc = selectPages(doc, cmd.Int("start-page"), cmd.Int("end-page"))

	if len(rules) > 0 {
		doc = rules.ApplyDocument(doc, config.Logger)
	}

	var output string
	switch format {
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode page dump: %w", err)
		}
		output = string(data)
	case "markdown", "md":
		output, err = doc.ToMarkdown(config)
	default:
		output, err = pdfhtml.RenderDocument(doc, config)
	}
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}

	if outputPath := cmd.String("output"); outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(output), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		config.Logger.WithField("path", outputPath).Info("Output written")
		return nil
	}

	fmt.Println(output)
	return nil
}

func loadConfig(cmd *cli.Command) (pdfhtml.Config, error) {
	config := pdfhtml.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		var err error
		config, err = pdfhtml.LoadConfig(path)
		if err != nil {
			return config, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if cmd.IsSet("wrap-pages") {
		config.WrapPages = cmd.Bool("wrap-pages")
	}
	if cmd.IsSet("tables") {
		config.IncludeTables = cmd.Bool("tables")
		config.DetectTables = cmd.Bool("tables")
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if cmd.Bool("debug") {
		logger.SetLevel(logrus.DebugLevel)
		config.EnableMetricsLogging = true
	}
	config.Logger = logger
	return config, nil
}

func loadDump(path string) (pdfhtml.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return pdfhtml.Document{}, fmt.Errorf("failed to open page dump: %w", err)
	}
	defer f.Close()

	doc, err := pdfhtml.LoadDocumentJSON(f)
	if err != nil {
		return pdfhtml.Document{}, fmt.Errorf("failed to load page dump: %w", err)
	}
	return doc, nil
}

// extractPDF extracts every page of the PDF with pdfium.
func extractPDF(path string, config pdfhtml.Config) (pdfhtml.Document, error) {
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return pdfhtml.Document{}, fmt.Errorf("failed to initialise pdfium: %w", err)
	}
	defer pool.Close()

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		return pdfhtml.Document{}, fmt.Errorf("failed to get pdfium instance: %w", err)
	}

	converter := pdfhtml.NewConverterWithConfig(instance, config)

	info, err := converter.GetDocumentInfo(path)
	if err != nil {
		return pdfhtml.Document{}, fmt.Errorf("failed to get document info: %w", err)
	}
	config.Logger.WithField("pages", info.PageCount).Info("Processing PDF")

	doc, err := converter.ExtractFile(path)
	if err != nil {
		return pdfhtml.Document{}, fmt.Errorf("failed to extract PDF: %w", err)
	}
	return doc, nil
}

// selectPages keeps pages startPage..endPage (0-indexed, inclusive).
// Negative bounds are open.
func selectPages(doc pdfhtml.Document, startPage, endPage int) pdfhtml.Document {
	if startPage < 0 && endPage < 0 {
		return doc
	}
	if startPage < 0 {
		startPage = 0
	}
	if endPage < 0 || endPage >= len(doc.Pages) {
		endPage = len(doc.Pages) - 1
	}
	if startPage > endPage {
		return pdfhtml.Document{}
	}
	doc.Pages = doc.Pages[startPage : endPage+1]
	return doc
}

package pdfhtml

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const emptyDocumentHTML = "<p></p>"

// RenderDocument renders every page and joins them with newlines. Pages
// are laid out concurrently, bounded by Config.Workers. Without WrapPages
// the paragraph merge pass also runs across page boundaries, so a sentence
// broken by a page turn comes back as one paragraph. A document with no
// content renders as an empty paragraph.
func (r *Renderer) RenderDocument(doc Document) (string, error) {
	pageFragments := make([][]Fragment, len(doc.Pages))

	var g errgroup.Group
	g.SetLimit(r.cfg.workers())
	for i, page := range doc.Pages {
		g.Go(func() error {
			fragments, err := r.renderPageFragments(page)
			if err != nil {
				return errors.Wrapf(err, "failed to render page %d", page.Number)
			}
			pageFragments[i] = fragments
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var out string
	if r.cfg.WrapPages {
		parts := make([]string, len(doc.Pages))
		for i, fragments := range pageFragments {
			parts[i] = r.wrapPage(doc.Pages[i], RenderFragments(fragments))
		}
		out = strings.Join(parts, "\n")
	} else {
		var all []Fragment
		for i, fragments := range pageFragments {
			if i > 0 {
				all = append(all, Fragment{Kind: FragmentRaw, HTML: "\n"})
			}
			all = append(all, fragments...)
		}
		out = RenderFragments(mergeParagraphs(all, pageMergeRule(r.cfg.Layout)))
	}

	r.cfg.logger().WithField("pages", len(doc.Pages)).Debug("Rendered document")

	if strings.TrimSpace(out) == "" {
		return emptyDocumentHTML, nil
	}
	return out, nil
}

// RenderDocument renders a document with the given configuration.
func RenderDocument(doc Document, cfg Config) (string, error) {
	return NewRenderer(cfg).RenderDocument(doc)
}

// RenderPage renders a single page with the given configuration.
func RenderPage(page Page, cfg Config) (string, error) {
	return NewRenderer(cfg).RenderPage(page)
}

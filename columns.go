package pdfhtml

import (
	"math"
	"slices"
)

// SplitLinesByColumn groups the lines of one block into reading columns.
// Line centers are clustered; when fewer than two clusters result or the
// lines span less than settings.ColumnMinSpan, a single group sorted by
// (y, x) comes back. Otherwise there is one group per column, left to
// right, each sorted top to bottom.
func SplitLinesByColumn(lines []Line, settings LayoutSettings) [][]Line {
	if len(lines) == 0 {
		return nil
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	centers := make([]float64, len(lines))
	for i, line := range lines {
		minX = math.Min(minX, line.Box.X0)
		maxX = math.Max(maxX, line.Box.X1)
		centers[i] = line.Box.CenterX()
	}

	columns := Cluster(centers, settings.ColumnLineThreshold)
	if len(columns) <= 1 || maxX-minX < settings.ColumnMinSpan {
		single := slices.Clone(lines)
		sortLinesByPosition(single)
		return [][]Line{single}
	}

	buckets := make([][]Line, len(columns))
	for i, line := range lines {
		idx := NearestCentroid(columns, centers[i])
		buckets[idx] = append(buckets[idx], line)
	}

	groups := make([][]Line, 0, len(buckets))
	for _, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		slices.SortStableFunc(bucket, func(a, b Line) int {
			return compareFloat(a.Box.Y0, b.Box.Y0)
		})
		groups = append(groups, bucket)
	}
	return groups
}

// DetectColumns returns the horizontal centers of the page's reading
// columns, left to right. Candidates are text blocks between
// ColumnMinWidthRatio and FullWidthRatio of the page width; if they yield
// nothing, every text block narrower than the full-width cutoff is tried.
// A page with fewer than two columns returns at most one center.
func DetectColumns(page Page, settings LayoutSettings) []float64 {
	return detectColumnCenters(collectPageItems(page, true), page.Width, settings)
}

func detectColumnCenters(items []pageItem, pageWidth float64, settings LayoutSettings) []float64 {
	g := newPageGeometry(pageWidth, settings)

	var primary, fallback []float64
	for _, item := range items {
		if !item.isTextBlock() || item.width > g.fullWidthCutoff {
			continue
		}
		fallback = append(fallback, item.center)
		if pageWidth == 0 || item.width >= g.columnMinWidth {
			primary = append(primary, item.center)
		}
	}

	columns := Cluster(primary, g.columnThreshold)
	if len(columns) == 0 {
		columns = Cluster(fallback, g.columnThreshold)
	}
	return columns
}

// pageGeometry holds the width-relative thresholds for one page.
type pageGeometry struct {
	columnThreshold float64
	columnMinWidth  float64
	fullWidthCutoff float64
}

func newPageGeometry(pageWidth float64, settings LayoutSettings) pageGeometry {
	if pageWidth <= 0 {
		return pageGeometry{
			columnThreshold: settings.ColumnThresholdMin,
			columnMinWidth:  150,
			fullWidthCutoff: math.Inf(1),
		}
	}
	return pageGeometry{
		columnThreshold: math.Max(pageWidth*settings.ColumnThresholdRatio, settings.ColumnThresholdMin),
		columnMinWidth:  pageWidth * settings.ColumnMinWidthRatio,
		fullWidthCutoff: pageWidth * settings.FullWidthRatio,
	}
}

func sortLinesByPosition(lines []Line) {
	slices.SortStableFunc(lines, func(a, b Line) int {
		if c := compareFloat(a.Box.Y0, b.Box.Y0); c != 0 {
			return c
		}
		return compareFloat(a.Box.X0, b.Box.X0)
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

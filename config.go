package pdfhtml

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config controls extraction and HTML reconstruction.
type Config struct {
	// IncludeTables renders page-level tables (default: true)
	IncludeTables bool `yaml:"include_tables"`

	// TableClass is the CSS class put on tables without their own class
	TableClass string `yaml:"table_class"`

	// WrapPages wraps each page in <section data-page="N"> and keeps the
	// paragraph merge pass inside page boundaries (default: false)
	WrapPages bool `yaml:"wrap_pages"`

	// BreakPrefixes are literal line prefixes that always open a new paragraph
	BreakPrefixes []string `yaml:"break_prefixes"`

	// DetectTables enables table detection during pdfium extraction (default: true)
	DetectTables bool `yaml:"detect_tables"`

	// UseAdaptiveThresholds derives segment thresholds from the page's own
	// spacing distribution when detecting tables (default: true)
	UseAdaptiveThresholds bool `yaml:"adaptive_thresholds"`

	// EnableMetricsLogging logs per-page timing and document statistics (default: false)
	EnableMetricsLogging bool `yaml:"metrics"`

	// Workers bounds concurrent page rendering (default: min(4, NumCPU))
	Workers int `yaml:"workers"`

	Layout LayoutSettings `yaml:"layout"`
	Matrix MatrixOptions  `yaml:"matrix"`

	// Logger receives debug decisions and metrics. Nil uses the standard logrus logger.
	Logger logrus.FieldLogger `yaml:"-"`
}

// LayoutSettings holds the geometric thresholds used by column detection and
// paragraph assembly. Distances are in page units.
type LayoutSettings struct {
	// Page-level columns
	ColumnThresholdRatio float64 `yaml:"column_threshold_ratio"` // cluster tolerance as a share of page width
	ColumnThresholdMin   float64 `yaml:"column_threshold_min"`
	ColumnMinWidthRatio  float64 `yaml:"column_min_width_ratio"` // narrowest candidate block
	FullWidthRatio       float64 `yaml:"full_width_ratio"`       // items at least this wide span columns

	// Line-level columns inside a block
	ColumnLineThreshold float64 `yaml:"column_line_threshold"`
	ColumnMinSpan       float64 `yaml:"column_min_span"`

	// Line merging
	LineMergeYTolerance      float64 `yaml:"line_merge_y_tolerance"`
	LineMergeCenterTolerance float64 `yaml:"line_merge_center_tolerance"`

	// Paragraph boundaries
	MinLineGap        float64 `yaml:"min_line_gap"`
	ParagraphGapSlack float64 `yaml:"paragraph_gap_slack"`

	// Continuation
	ContinuationRadius   float64 `yaml:"continuation_radius"`
	MergeCenterTolerance float64 `yaml:"merge_center_tolerance"`
	ShortFragmentWords   int     `yaml:"short_fragment_words"`
}

// DefaultLayoutSettings returns thresholds tuned on two-column print layouts.
func DefaultLayoutSettings() LayoutSettings {
	return LayoutSettings{
		ColumnThresholdRatio:     0.08,
		ColumnThresholdMin:       60,
		ColumnMinWidthRatio:      0.25,
		FullWidthRatio:           0.7,
		ColumnLineThreshold:      80,
		ColumnMinSpan:            360,
		LineMergeYTolerance:      1.0,
		LineMergeCenterTolerance: 20,
		MinLineGap:               0.5,
		ParagraphGapSlack:        1.0,
		ContinuationRadius:       120,
		MergeCenterTolerance:     120,
		ShortFragmentWords:       20,
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		IncludeTables:         true,
		DetectTables:          true,
		UseAdaptiveThresholds: true,
		Workers:               min(4, runtime.NumCPU()),
		Layout:                DefaultLayoutSettings(),
		Matrix:                DefaultMatrixOptions(),
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Keys missing from
// the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	return config, nil
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

func (c Config) workers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}

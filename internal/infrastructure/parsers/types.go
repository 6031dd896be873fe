package parsers

import (
	"context"
	"io"
)

// Record is a single spreadsheet row keyed by header column name. Cells are
// always strings; interpretation happens in the validation layer.
type Record map[string]string

// ParseResult is the outcome of parsing one uploaded spreadsheet.
type ParseResult struct {
	Records     []Record
	TotalRows   int
	SkippedRows int
	Columns     []string
	Format      string
}

// FileParser is the interface all spreadsheet parsers implement.
type FileParser interface {
	// Parse reads and parses the file at the given path.
	Parse(ctx context.Context, filePath string) (*ParseResult, error)

	// ParseStream reads and parses spreadsheet data from a reader.
	ParseStream(ctx context.Context, r io.Reader) (*ParseResult, error)

	// SupportedFormats returns the file extensions this parser handles.
	SupportedFormats() []string
}

// ParserConfig holds shared parser settings.
type ParserConfig struct {
	// SkipEmptyRows drops rows whose cells are all blank.
	SkipEmptyRows bool

	// TrimWhitespace trims header names and cell values.
	TrimWhitespace bool

	// MaxFileSize is the maximum file size in bytes (0 = unlimited).
	MaxFileSize int64
}

// DefaultParserConfig returns the settings used for checkout uploads.
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		SkipEmptyRows:  true,
		TrimWhitespace: true,
		MaxFileSize:    16 * 1024 * 1024, // 16 MB
	}
}

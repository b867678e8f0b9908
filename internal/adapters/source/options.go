package source

import "context"

// Default source configuration constants.
const (
	defaultBatchSize  = 256
	defaultMaxLineLen = 4 << 20
)

// Option applies a configuration option to the FileSource.
type Option func(*FileSource)

// WithFormat forces a format for every file. FormatAuto or an empty string
// detects the format from each file's extension.
func WithFormat(format string) Option {
	return func(s *FileSource) {
		if format != "" {
			s.format = format
		}
	}
}

// WithBatchSize sets how many parquet rows are decoded per read.
func WithBatchSize(n int) Option {
	return func(s *FileSource) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithMaxLineLength bounds a single NDJSON record in bytes.
func WithMaxLineLength(n int) Option {
	return func(s *FileSource) {
		if n > 0 {
			s.maxLineLen = n
		}
	}
}

// NewOpener returns an Opener producing FileSources configured with opts.
func NewOpener(opts ...Option) Opener {
	return func(ctx context.Context, files []string) (EventSource, error) {
		return Open(ctx, files, opts...)
	}
}

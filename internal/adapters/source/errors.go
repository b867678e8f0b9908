package source

import (
	"errors"
	"fmt"
)

// Sentinel kinds for event source errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported ntuple format")
	ErrMalformedRecord   = errors.New("malformed event record")
	ErrClosed            = errors.New("event source closed")
)

// FormatError reports a file whose format cannot be determined.
type FormatError struct {
	Path   string
	Format string
}

func (e *FormatError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("%s: format %q for %s", ErrUnsupportedFormat, e.Format, e.Path)
	}
	return fmt.Sprintf("%s: %s", ErrUnsupportedFormat, e.Path)
}

func (e *FormatError) Unwrap() error { return ErrUnsupportedFormat }

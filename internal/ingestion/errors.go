package ingestion

import "fmt"

// UnsupportedFormatError reports a document type that cannot be read.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format: %s", e.Format)
}

// ExtractError wraps a failure to read text out of a document.
type ExtractError struct {
	Format  string
	Message string
	Cause   error
}

func (e *ExtractError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extracting %s: %s: %v", e.Format, e.Message, e.Cause)
	}
	return fmt.Sprintf("extracting %s: %s", e.Format, e.Message)
}

func (e *ExtractError) Unwrap() error {
	return e.Cause
}

package extract

import (
	"errors"
	"fmt"

	"github.com/xhad/verdict/internal/models"
)

// Skip conditions. None of them aborts a batch.
var (
	// ErrFormatUnsupported: no capability exists for the sniffed format.
	ErrFormatUnsupported = errors.New("format unsupported")
	// ErrExtractionFailed: a capability rejected the bytes.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrContentTooShort: fewer than MinContentChars characters after trimming.
	ErrContentTooShort = errors.New("content too short")
)

// ExtractionError carries the document identity and the capability's cause.
type ExtractionError struct {
	Source string
	Format models.Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.Source, e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtractionFailed }

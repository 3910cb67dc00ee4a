package pipeline

import (
	"errors"

	"github.com/xhad/verdict/pkg/blob"
	"github.com/xhad/verdict/pkg/corpus"
	"github.com/xhad/verdict/pkg/extract"
)

// Skip reasons reported in Stats and diagnostics.
const (
	ReasonUnsupported      = "format_unsupported"
	ReasonExtractionFailed = "extraction_failed"
	ReasonTooShort         = "content_too_short"
	ReasonFilename         = "filename_contract"
	ReasonExists           = "output_exists"
	ReasonNotText          = "not_text"
	ReasonOther            = "error"
)

// Reason maps a per-document error to its skip reason.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, extract.ErrFormatUnsupported):
		return ReasonUnsupported
	case errors.Is(err, extract.ErrExtractionFailed):
		return ReasonExtractionFailed
	case errors.Is(err, extract.ErrContentTooShort):
		return ReasonTooShort
	case errors.Is(err, corpus.ErrFilenameContract):
		return ReasonFilename
	case errors.Is(err, blob.ErrExists):
		return ReasonExists
	case errors.Is(err, errNotText):
		return ReasonNotText
	default:
		return ReasonOther
	}
}

var errNotText = errors.New("not a .txt blob")

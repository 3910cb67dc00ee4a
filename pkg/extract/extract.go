// Package extract routes raw bytes to a per-format text capability and applies
// the minimum-content policy to the result.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xhad/verdict/internal/models"
	"github.com/xhad/verdict/internal/types"
	"github.com/xhad/verdict/pkg/sniff"
)

// MinContentChars is the smallest accepted text length, in characters, after trimming.
const MinContentChars = 50

type DispatcherConfig struct {
	// AntiwordPath is the antiword binary used for legacy .doc files.
	AntiwordPath string
}

// Dispatcher holds one capability per supported format. zip and bin never get one.
type Dispatcher struct {
	extractors map[models.Format]types.Extractor
}

// NewWithConfig wires the default capabilities.
func NewWithConfig(config DispatcherConfig) *Dispatcher {
	if config.AntiwordPath == "" {
		config.AntiwordPath = "antiword"
	}
	return New(map[models.Format]types.Extractor{
		models.FormatPDF:  types.ExtractorFunc(PDF),
		models.FormatDOCX: types.ExtractorFunc(DOCX),
		models.FormatODF:  types.ExtractorFunc(ODF),
		models.FormatDOC:  Antiword{Path: config.AntiwordPath},
		models.FormatHTML: types.ExtractorFunc(HTML),
	})
}

// New builds a dispatcher over an explicit capability table.
func New(extractors map[models.Format]types.Extractor) *Dispatcher {
	table := make(map[models.Format]types.Extractor, len(extractors))
	for f, e := range extractors {
		if f == models.FormatZIP || f == models.FormatBin || e == nil {
			continue
		}
		table[f] = e
	}
	return &Dispatcher{extractors: table}
}

// Supports reports whether a capability is registered for f.
func (d *Dispatcher) Supports(f models.Format) bool {
	_, ok := d.extractors[f]
	return ok
}

// Extract sniffs raw and extracts its text.
func (d *Dispatcher) Extract(raw models.RawDocument) (models.ExtractedDocument, error) {
	return d.ExtractFormat(raw, sniff.Detect(raw.Data, raw.Name, raw.ContentType))
}

// ExtractFormat extracts raw as format f. The returned text is trimmed and at
// least MinContentChars long; anything else is reported as a skip error.
func (d *Dispatcher) ExtractFormat(raw models.RawDocument, f models.Format) (models.ExtractedDocument, error) {
	doc := models.ExtractedDocument{SourceRef: raw.Name, Format: f}

	ex, ok := d.extractors[f]
	if !ok {
		return doc, fmt.Errorf("%s (%s): %w", raw.Name, f, ErrFormatUnsupported)
	}

	text, err := ex.Extract(raw.Data)
	if err != nil {
		return doc, &ExtractionError{Source: raw.Name, Format: f, Err: err}
	}

	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < MinContentChars {
		return doc, fmt.Errorf("%s (%s): %d chars: %w", raw.Name, f, n, ErrContentTooShort)
	}

	doc.Text = text
	return doc, nil
}

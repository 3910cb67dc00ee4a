package processor

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/xhad/verdict/internal/models"
	"github.com/xhad/verdict/pkg/anonymize"
)

type ProcessorConfig struct {
	Anonymize bool
}

type Processor struct {
	config     ProcessorConfig
	anonymizer *anonymize.Anonymizer
}

func NewWithConfig(config ProcessorConfig) Processor {
	p := Processor{config: config}
	if config.Anonymize {
		p.anonymizer = anonymize.New()
	}
	return p
}

// Process normalizes, optionally anonymizes and splits one extracted document.
func (p *Processor) Process(doc models.ExtractedDocument) models.ProcessedDocument {
	text := p.Clean(doc.Text)
	doc.Text = text
	return models.ProcessedDocument{
		ExtractedDocument: doc,
		Paragraphs:        SplitParagraphs(text),
	}
}

// Clean returns the text the classifier and the text container see.
func (p *Processor) Clean(text string) string {
	text = NormalizeText(text)
	if p.anonymizer != nil {
		text = p.anonymizer.Anonymize(text)
	}
	return text
}

// NormalizeText converts line endings to \n and the text to NFC, so every
// later offset counts composed characters.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}

// isSpace is Unicode white space plus the ASCII separators U+001C..U+001F.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// SplitParagraphs splits on lines holding only white space (NBSP and
// ideographic space included), trims each block and drops empty ones.
func SplitParagraphs(text string) []models.Paragraph {
	var (
		paragraphs []models.Paragraph
		block      []string
	)
	flush := func() {
		p := strings.TrimFunc(strings.Join(block, "\n"), isSpace)
		block = block[:0]
		if p != "" {
			paragraphs = append(paragraphs, models.Paragraph{Index: len(paragraphs), Text: p})
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimFunc(line, isSpace) == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()
	return paragraphs
}

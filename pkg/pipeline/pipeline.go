// Package pipeline wires sniffing, extraction, anonymization, splitting and
// classification into the per-document flow and runs it over blob containers.
package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xhad/verdict/internal/models"
	"github.com/xhad/verdict/pkg/anonymize"
	"github.com/xhad/verdict/pkg/classifier"
	"github.com/xhad/verdict/pkg/corpus"
	"github.com/xhad/verdict/pkg/extract"
	"github.com/xhad/verdict/pkg/processor"
)

type PipelineConfig struct {
	Anonymize    bool
	AntiwordPath string
}

// Pipeline is the per-document flow. It keeps no per-document state and is
// safe for concurrent use.
type Pipeline struct {
	extractor  *extract.Dispatcher
	processor  processor.Processor
	anonymizer *anonymize.Anonymizer
	classifier *classifier.Classifier
	builder    *corpus.Builder
}

func NewWithConfig(config PipelineConfig) *Pipeline {
	return &Pipeline{
		extractor:  extract.NewWithConfig(extract.DispatcherConfig{AntiwordPath: config.AntiwordPath}),
		processor:  processor.NewWithConfig(processor.ProcessorConfig{Anonymize: config.Anonymize}),
		anonymizer: anonymize.New(),
		classifier: classifier.New(),
		builder:    corpus.NewBuilder(),
	}
}

// Extract sniffs, extracts and cleans one raw document.
func (p *Pipeline) Extract(raw models.RawDocument) (models.ProcessedDocument, error) {
	doc, err := p.extractor.Extract(raw)
	if err != nil {
		return models.ProcessedDocument{ExtractedDocument: doc}, err
	}
	return p.processor.Process(doc), nil
}

// Process runs the full flow from raw bytes to a classification.
func (p *Pipeline) Process(raw models.RawDocument) (models.ClassificationRecord, models.ProcessedDocument, error) {
	doc, err := p.Extract(raw)
	if err != nil {
		return models.ClassificationRecord{}, doc, err
	}
	return p.classifier.Classify(doc.Paragraphs), doc, nil
}

// Anonymize applies the redaction passes regardless of the configured default.
func (p *Pipeline) Anonymize(text string) string {
	return p.anonymizer.Anonymize(processor.NormalizeText(text))
}

// Classify labels already extracted text.
func (p *Pipeline) Classify(text string) models.ClassificationRecord {
	return p.classifier.Classify(processor.SplitParagraphs(processor.NormalizeText(text)))
}

// Label builds the emitted record for one text blob. name must satisfy the
// decision filename contract.
func (p *Pipeline) Label(name, text string) (models.Record, error) {
	fn, err := corpus.ParseFileName(name)
	if err != nil {
		return models.Record{}, err
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < extract.MinContentChars {
		return models.Record{}, fmt.Errorf("%s: %d chars: %w", name, n, extract.ErrContentTooShort)
	}
	return p.builder.Record(fn, name, text, p.Classify(text)), nil
}

// Entry builds the plain corpus line for one text blob.
func (p *Pipeline) Entry(name, text string) (models.CorpusEntry, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < extract.MinContentChars {
		return models.CorpusEntry{}, fmt.Errorf("%s: %d chars: %w", name, n, extract.ErrContentTooShort)
	}
	return p.builder.Entry(name, text), nil
}

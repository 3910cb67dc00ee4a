package corpus

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xhad/verdict/internal/models"
)

const (
	VerificationStatusAuto = "auto"
	LabelSourceAutoRule    = "auto_rule"
)

func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DocID identifies a labeled decision by its name and content.
func DocID(name, text string) string {
	return SHA256Hex(name + "|" + SHA256Hex(text))
}

// EntryID identifies a corpus entry by its name and length.
func EntryID(name string, charLen int) string {
	return SHA256Hex(name + "|" + strconv.Itoa(charLen))
}

// Builder stamps records with the ingestion time.
type Builder struct {
	now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderAt returns a Builder with a fixed clock.
func NewBuilderAt(now func() time.Time) *Builder {
	return &Builder{now: now}
}

func (b *Builder) timestamp() string {
	return b.now().UTC().Format(time.RFC3339Nano)
}

// Record joins a parsed file name, the trimmed document text and its
// classification into the emitted record.
func (b *Builder) Record(fn FileName, name, text string, c models.ClassificationRecord) models.Record {
	spans := c.Spans
	if spans == nil {
		spans = []models.EvidenceSpan{}
	}
	rec := models.Record{
		DocID:              DocID(name, text),
		FileName:           name,
		Court:              fn.Court,
		CourtSlug:          fn.CourtSlug,
		Upisnik:            fn.Upisnik,
		Broj:               fn.Broj,
		Godina:             fn.Godina,
		DecisionParagraph:  c.DecisionParagraph,
		ParagraphIndex:     c.ParagraphIndex,
		ParagraphCount:     c.ParagraphCount,
		MatchedSpans:       spans,
		AutoRule:           c.RuleID,
		Confidence:         c.Confidence,
		Abstain:            c.Abstain,
		VerificationStatus: VerificationStatusAuto,
		LabelSource:        LabelSourceAutoRule,
		TextHash:           SHA256Hex(text),
		IngestedAt:         b.timestamp(),
		CharLen:            utf8.RuneCountInString(text),
	}
	switch c.Label {
	case models.LabelPositive:
		rec.GrossNegligence = 1
	case models.LabelNegative:
		rec.NotGrossNegligence = 1
	}
	return rec
}

// Entry builds a plain corpus line.
func (b *Builder) Entry(name, text string) models.CorpusEntry {
	n := utf8.RuneCountInString(text)
	return models.CorpusEntry{
		DocID:          EntryID(name, n),
		SourceTextBlob: name,
		CharLen:        n,
		IngestedAt:     b.timestamp(),
		Text:           text,
	}
}

// WriteJSONL writes one compact JSON object per line, leaving non-ASCII and
// HTML characters unescaped.
func WriteJSONL[T any](w io.Writer, items []T) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("encode line %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

// ReadJSONL decodes a JSONL stream.
func ReadJSONL[T any](r io.Reader) ([]T, error) {
	dec := json.NewDecoder(r)
	var out []T
	for dec.More() {
		var item T
		if err := dec.Decode(&item); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", len(out)+1, err)
		}
		out = append(out, item)
	}
	return out, nil
}

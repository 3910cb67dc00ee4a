// Package classifier labels a court decision for gross-negligence evidence.
//
// Rules are evaluated in order over the full paragraph sequence: explicit
// "gruba nepažnja" evidence (possibly negated) always takes precedence over
// near-synonym evidence, whatever their positions in the document. Matching is
// done on a folded copy of each paragraph; the fold is rune-for-rune, so span
// offsets are code-point offsets into the NFC form of the paragraph, which is
// what the record stores as the decision paragraph.
package classifier

import (
	"github.com/xhad/verdict/internal/models"
)

// Classifier is safe for concurrent use.
type Classifier struct {
	rules []Rule
}

func New() *Classifier {
	return NewWithRules(DefaultRules())
}

func NewWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify always resolves to a terminal state; ABSTAIN_NONE is the worst case.
func (c *Classifier) Classify(paragraphs []models.Paragraph) models.ClassificationRecord {
	views := make([]view, len(paragraphs))
	for i, p := range paragraphs {
		views[i] = newView(p.Text)
	}

	for _, rule := range c.rules {
		for i, v := range views {
			spans := rule.Evidence.findSpans(v)
			if len(spans) == 0 {
				continue
			}
			outcome := rule.Matched
			if rule.Negation != nil && rule.Negation.negated(v) {
				outcome = rule.Negated
			}
			index := i
			return record(outcome, &index, len(paragraphs), v.text, spans)
		}
	}
	return record(noMatch, nil, len(paragraphs), "", []models.EvidenceSpan{})
}

func record(o Outcome, index *int, count int, paragraph string, spans []models.EvidenceSpan) models.ClassificationRecord {
	return models.ClassificationRecord{
		Label:             o.Label,
		Confidence:        o.Confidence,
		RuleID:            o.RuleID,
		ParagraphIndex:    index,
		ParagraphCount:    count,
		DecisionParagraph: paragraph,
		Spans:             spans,
		Abstain:           o.Label.Abstains(),
	}
}

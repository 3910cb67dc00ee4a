package models

// Label is the terminal state of the decision classifier.
type Label string

const (
	LabelPositive       Label = "POSITIVE"
	LabelNegative       Label = "NEGATIVE"
	LabelAbstainSynonym Label = "ABSTAIN_SYNONYM"
	LabelAbstainNone    Label = "ABSTAIN_NONE"
)

// Abstains reports whether the label withholds a POSITIVE/NEGATIVE verdict.
func (l Label) Abstains() bool {
	return l != LabelPositive && l != LabelNegative
}

// SpanType names the matcher family and script that produced an evidence span.
type SpanType string

const (
	SpanGrossLatin      SpanType = "GROSS_LAT"
	SpanGrossCyrillic   SpanType = "GROSS_CYR"
	SpanSynonymLatin    SpanType = "SYN_LAT"
	SpanSynonymCyrillic SpanType = "SYN_CYR"
)

// EvidenceSpan is a [Start, End) range of code points into the decision paragraph.
type EvidenceSpan struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Type  SpanType `json:"type"`
}

// Rule identifiers emitted in the auto_rule field.
const (
	RuleGrossTerm        = "GROSS_TERM"
	RuleGrossTermNegated = "GROSS_TERM_NEGATED"
	RuleSynonymOnly      = "SYNONYM_ONLY"
	RuleNoMatch          = "NO_MATCH"
)

// ClassificationRecord is the classifier verdict for one document.
// ParagraphIndex is nil exactly when RuleID is RuleNoMatch.
type ClassificationRecord struct {
	Label             Label          `json:"label"`
	Confidence        float64        `json:"confidence"`
	RuleID            string         `json:"rule_id"`
	ParagraphIndex    *int           `json:"paragraph_index"`
	ParagraphCount    int            `json:"paragraph_count"`
	DecisionParagraph string         `json:"decision_paragraph"`
	Spans             []EvidenceSpan `json:"spans"`
	Abstain           bool           `json:"abstain"`
}

// Record is the JSON object emitted per accepted document. Its field set is the
// compatibility surface for downstream indexers.
type Record struct {
	DocID     string `json:"doc_id"`
	FileName  string `json:"file_name"`
	Court     string `json:"court"`
	CourtSlug string `json:"court_slug"`
	Upisnik   string `json:"upisnik"`
	Broj      int    `json:"broj"`
	Godina    int    `json:"godina"`

	GrossNegligence    int `json:"gross_negligence"`
	NotGrossNegligence int `json:"not_gross_negligence"`

	DecisionParagraph string         `json:"decision_paragraph"`
	ParagraphIndex    *int           `json:"paragraph_index"`
	ParagraphCount    int            `json:"paragraph_count"`
	MatchedSpans      []EvidenceSpan `json:"matched_spans"`
	AutoRule          string         `json:"auto_rule"`

	Confidence float64 `json:"confidence"`
	Abstain    bool    `json:"abstain"`

	VerificationStatus string `json:"verification_status"`
	LabelSource        string `json:"label_source"`
	VerifiedLabel      *int   `json:"verified_label"`

	TextHash   string `json:"text_hash"`
	IngestedAt string `json:"ingested_at"`
	CharLen    int    `json:"char_len"`
}

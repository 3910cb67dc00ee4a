package classifier

import "github.com/xhad/verdict/internal/models"

// Outcome is the terminal state a rule resolves to.
type Outcome struct {
	Label      models.Label
	RuleID     string
	Confidence float64
}

// Rule fires on the first paragraph where its evidence matches. When Negation
// is set and fires on that same paragraph, Negated is emitted instead of Matched.
type Rule struct {
	Name     string
	Evidence EvidenceMatcher
	Negation NegationDetector
	Matched  Outcome
	Negated  Outcome
}

var noMatch = Outcome{
	Label:      models.LabelAbstainNone,
	RuleID:     models.RuleNoMatch,
	Confidence: 0.0,
}

// DefaultRules is the labeling policy, highest precedence first. Each rule
// scans the whole document before the next one is tried.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "gross_term",
			Evidence: grossTerm(),
			Negation: negation(),
			Matched: Outcome{
				Label:      models.LabelPositive,
				RuleID:     models.RuleGrossTerm,
				Confidence: 0.90,
			},
			Negated: Outcome{
				Label:      models.LabelNegative,
				RuleID:     models.RuleGrossTermNegated,
				Confidence: 0.95,
			},
		},
		{
			Name:     "synonym",
			Evidence: synonymTerm(),
			Matched: Outcome{
				Label:      models.LabelAbstainSynonym,
				RuleID:     models.RuleSynonymOnly,
				Confidence: 0.60,
			},
		},
	}
}

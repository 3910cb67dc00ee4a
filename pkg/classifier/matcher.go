package classifier

import (
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/xhad/verdict/internal/models"
)

// Script is a bit set of the writing systems present in a text.
type Script uint8

const (
	ScriptLatin Script = 1 << iota
	ScriptCyrillic
)

const cyrLetters = `[а-яђјљњћџ]*`

// Patterns run against the folded text: lowercase, Latin diacritics stripped.
const (
	grossLatin      = `\bgrub[a-z]*\s+nepaznj[a-z]*\b`
	grossCyrillic   = `\bгруб` + cyrLetters + `\s+непажњ` + cyrLetters + `\b`
	synonymLatin    = `\b(krajnj[a-z]*|tesk[a-z]*|ocigledn[a-z]*|izrazit[a-z]*)\s+nepaznj[a-z]*\b`
	synonymCyrillic = `\b(крајњ` + cyrLetters + `|тешк` + cyrLetters + `|очигледн` + cyrLetters + `|изразит` + cyrLetters + `)\s+непажњ` + cyrLetters + `\b`

	negationLatin    = `\b(nije|nisu|ne\s+moze|ne\s+moze\s+se\s+smatrati|ne\s+predstavlja|ne\s+ukazuje|ne\s+postoji)\b`
	negationCyrillic = `\b(није|нису|не\s+може|не\s+може\s+се\s+сматрати|не\s+представља|не\s+указује|не\s+постоји)\b`
)

var latinFold = runes.Map(foldRune)

// foldRune maps one rune to exactly one rune, so folded offsets are offsets
// into the unfolded text.
func foldRune(r rune) rune {
	r = unicode.ToLower(r)
	switch r {
	case 'č', 'ć':
		return 'c'
	case 'š':
		return 's'
	case 'ž':
		return 'z'
	case 'đ':
		return 'd'
	}
	return r
}

// view is a paragraph prepared for matching.
type view struct {
	text    string
	folded  string
	scripts Script
}

func newView(text string) view {
	text = norm.NFC.String(text)
	folded, _, err := transform.String(latinFold, text)
	if err != nil {
		folded = strings.Map(foldRune, text)
	}
	return view{text: text, folded: folded, scripts: DetectScripts(folded)}
}

// DetectScripts reports which of the supported scripts occur in s.
func DetectScripts(s string) Script {
	var sc Script
	for _, r := range s {
		switch {
		case unicode.In(r, unicode.Latin):
			sc |= ScriptLatin
		case unicode.In(r, unicode.Cyrillic):
			sc |= ScriptCyrillic
		}
		if sc == ScriptLatin|ScriptCyrillic {
			break
		}
	}
	return sc
}

// Matcher is one compiled pattern bound to the script it reads.
type Matcher struct {
	Type   models.SpanType
	Script Script
	re     *regexp2.Regexp
}

func newMatcher(typ models.SpanType, script Script, pattern string) *Matcher {
	re := regexp2.MustCompile(pattern, regexp2.None)
	re.MatchTimeout = time.Second
	return &Matcher{Type: typ, Script: script, re: re}
}

func (m *Matcher) applies(v view) bool {
	return v.scripts&m.Script != 0
}

// find returns every match in v as code-point spans.
func (m *Matcher) find(v view) []models.EvidenceSpan {
	if !m.applies(v) {
		return nil
	}
	var spans []models.EvidenceSpan
	match, err := m.re.FindStringMatch(v.folded)
	for err == nil && match != nil {
		spans = append(spans, models.EvidenceSpan{
			Start: match.Index,
			End:   match.Index + match.Length,
			Type:  m.Type,
		})
		match, err = m.re.FindNextMatch(match)
	}
	if err != nil {
		slog.Warn("classifier: matcher timed out", "type", m.Type, "err", err)
	}
	return spans
}

func (m *Matcher) matches(v view) bool {
	if !m.applies(v) {
		return false
	}
	ok, err := m.re.MatchString(v.folded)
	if err != nil {
		slog.Warn("classifier: matcher timed out", "type", m.Type, "err", err)
		return false
	}
	return ok
}

// EvidenceMatcher is a phrase family rendered in both scripts.
type EvidenceMatcher []*Matcher

// findSpans returns the spans of every script variant, ordered by position.
func (e EvidenceMatcher) findSpans(v view) []models.EvidenceSpan {
	var spans []models.EvidenceSpan
	for _, m := range e {
		spans = append(spans, m.find(v)...)
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

// NegationDetector reports negation cues in either script.
type NegationDetector []*Matcher

func (n NegationDetector) negated(v view) bool {
	for _, m := range n {
		if m.matches(v) {
			return true
		}
	}
	return false
}

func grossTerm() EvidenceMatcher {
	return EvidenceMatcher{
		newMatcher(models.SpanGrossLatin, ScriptLatin, grossLatin),
		newMatcher(models.SpanGrossCyrillic, ScriptCyrillic, grossCyrillic),
	}
}

func synonymTerm() EvidenceMatcher {
	return EvidenceMatcher{
		newMatcher(models.SpanSynonymLatin, ScriptLatin, synonymLatin),
		newMatcher(models.SpanSynonymCyrillic, ScriptCyrillic, synonymCyrillic),
	}
}

func negation() NegationDetector {
	return NegationDetector{
		newMatcher("", ScriptLatin, negationLatin),
		newMatcher("", ScriptCyrillic, negationCyrillic),
	}
}

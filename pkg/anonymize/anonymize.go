// Package anonymize redacts personally identifying information from extracted
// court-decision text with an ordered sequence of regex passes.
//
// It is a best-effort safety net, not a certified anonymizer. Passes run
// top-to-bottom on the output of the previous pass, so specific patterns
// (e-mail, URL) are consumed before broader numeric ones. Replacement tokens are
// bracketed and digit-free. A token can still open a word boundary next to a
// value that was glued to the replaced one, so the sequence is repeated until
// the text stops changing; the result is a fixed point and re-running
// Anonymize on it is a no-op.
package anonymize

import (
	"log/slog"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Replacement tokens.
const (
	TokenEmail    = "[EMAIL]"
	TokenURL      = "[URL]"
	TokenJMBG     = "[JMBG]"
	TokenPhone    = "[PHONE]"
	TokenIBAN     = "[IBAN]"
	TokenLongNum  = "[CARD_OR_LONG_NUMBER]"
	TokenPlate    = "[PLATE]"
	TokenDocID    = "[DOC_ID]"
	TokenAddress  = "[ADDRESS]"
	TokenName     = "[NAME]"
	TokenInitials = "[INITIALS]"
)

const (
	upperLat = `A-ZČĆŠĐŽ`
	lowerLat = `a-zčćšđž`
	upperCyr = `А-ЯЂЈЉЊЋЏ`
	lowerCyr = `а-яђјљњћџ`
)

const roleKeywords = `tužilac|tužilja|tuženi|tužena|okrivljeni|okrivljena|optuženi|optužena|` +
	`branilac|punomoćnik|puno(?:m|ć)nik|oštećeni|oštećena|svedok|svjedok|sudija|` +
	`predsednik\s+veća|predsjednik\s+vijeća|` +
	`тужилац|тужиља|тужени|тужена|окривљени|окривљена|оптужени|оптужена|` +
	`бранилац|пуномоћник|оштећени|оштећена|сведок|судија|председник\s+већа`

// Pass is one named substitution over the whole text.
type Pass struct {
	Name        string
	re          *regexp2.Regexp
	replacement string
}

func newPass(name, pattern string, opts regexp2.RegexOptions, replacement string) Pass {
	re := regexp2.MustCompile(pattern, opts)
	re.MatchTimeout = 5 * time.Second
	return Pass{Name: name, re: re, replacement: replacement}
}

// Apply runs the pass. A regex timeout leaves the text unchanged.
func (p Pass) Apply(text string) string {
	out, err := p.re.Replace(text, p.replacement, -1, -1)
	if err != nil {
		slog.Warn("anonymize: pass skipped", "pass", p.Name, "err", err)
		return text
	}
	return out
}

// Passes returns the redaction passes in execution order.
func Passes() []Pass {
	const ci = regexp2.IgnoreCase
	return []Pass{
		newPass("email", `\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`, ci, TokenEmail),
		newPass("url", `\bhttps?://\S+\b`, ci, TokenURL),
		newPass("www", `\bwww\.\S+\b`, ci, TokenURL),
		newPass("jmbg", `\b\d{13}\b`, regexp2.None, TokenJMBG),
		newPass("phone", `(?<!\d)(?:\+?381|0)\s*(?:\(?\d{2,3}\)?[\s/-]*)\d{3}[\s/-]*\d{3,4}(?!\d)`, regexp2.None, TokenPhone),
		newPass("iban", `\bRS\s*\d(?:\s*\d){19}\b`, ci, TokenIBAN),
		newPass("long_number", `(?<!\d)\d(?:[ -]?\d){12,18}(?!\d)`, regexp2.None, TokenLongNum),
		newPass("plate", `\b[`+upperLat+`]{1,2}\s*\d{3,4}\s*[- ]?\s*[`+upperLat+`]{1,2}\b`, regexp2.None, TokenPlate),
		newPass("doc_id", `\b(ličn(?:a|e)\s+karta|lk|pasoš|putna\s+isprava|broj\s+dokumenta|лична\s+карта|пасош)\s*[:#]?\s*\w+\b`, ci, "$1: "+TokenDocID),
		newPass("address", `\b(ul\.?|ulica|bulevar|улица|булевар|bb)\s+[A-Za-z`+upperLat+lowerLat+upperCyr+lowerCyr+`0-9 .-]{2,}\b`, ci, TokenAddress),
		newPass("role_name", `\b((?i:`+roleKeywords+`))\b\s*[:\-]\s*`+
			`[`+upperLat+upperCyr+`][`+lowerLat+lowerCyr+`]+(?:\s+[`+upperLat+upperCyr+`][`+lowerLat+lowerCyr+`]+){1,2}`,
			regexp2.None, "$1: "+TokenName),
		newPass("initials", `\b[`+upperLat+upperCyr+`]\.\s*[`+upperLat+upperCyr+`]\.(?!\w)`, regexp2.None, TokenInitials),
	}
}

var (
	horizontalSpace = regexp2.MustCompile(`[ \t]+`, regexp2.None)
	blankRuns       = regexp2.MustCompile(`\n{3,}`, regexp2.None)
)

// maxRounds bounds the fixed-point loop; each extra round only runs when the
// previous one redacted something.
const maxRounds = 8

// Anonymizer applies the redaction passes followed by whitespace normalization.
// It is safe for concurrent use.
type Anonymizer struct {
	passes []Pass
}

func New() *Anonymizer {
	return &Anonymizer{passes: Passes()}
}

// Anonymize never fails; text without matches only has its whitespace normalized.
func (a *Anonymizer) Anonymize(text string) string {
	if text == "" {
		return text
	}
	// Horizontal whitespace is collapsed up front as well, so a second run sees
	// the same separators as the first one.
	t := strings.NewReplacer("\u00a0", " ", "\r\n", "\n").Replace(text)
	t = replaceAll(horizontalSpace, t, " ")

	for round := 0; round < maxRounds; round++ {
		next := t
		for _, p := range a.passes {
			next = p.Apply(next)
		}
		next = normalizeWhitespace(next)
		if next == t {
			break
		}
		t = next
	}
	return t
}

func normalizeWhitespace(t string) string {
	t = replaceAll(horizontalSpace, t, " ")
	t = replaceAll(blankRuns, t, "\n\n")
	return strings.TrimSpace(t)
}

func replaceAll(re *regexp2.Regexp, text, repl string) string {
	out, err := re.Replace(text, repl, -1, -1)
	if err != nil {
		return text
	}
	return out
}

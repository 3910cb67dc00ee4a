package corpus

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrFilenameContract is returned for text blob names that do not follow
// <court-slug>-<docket-code>-<number>-<year>.txt.
var ErrFilenameContract = errors.New("filename does not match court-docket-number-year contract")

var fileNamePattern = regexp.MustCompile(`(?i)^(?P<court>.+?)-(?P<upisnik>[a-z]+\d*)-(?P<broj>\d{3,5})-(?P<godina>\d{4})\.txt$`)

// FileName holds the fields encoded in a decision file name.
type FileName struct {
	Court     string
	CourtSlug string
	Upisnik   string
	Broj      int
	Godina    int
}

func ParseFileName(name string) (FileName, error) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return FileName{}, fmt.Errorf("%q: %w", name, ErrFilenameContract)
	}
	group := func(n string) string { return m[fileNamePattern.SubexpIndex(n)] }

	broj, err := strconv.Atoi(group("broj"))
	if err != nil {
		return FileName{}, fmt.Errorf("%q: broj: %w", name, ErrFilenameContract)
	}
	godina, err := strconv.Atoi(group("godina"))
	if err != nil {
		return FileName{}, fmt.Errorf("%q: godina: %w", name, ErrFilenameContract)
	}

	slug := NormalizeCourtSlug(group("court"))
	return FileName{
		Court:     HumanizeSlug(slug),
		CourtSlug: slug,
		Upisnik:   strings.ToLower(group("upisnik")),
		Broj:      broj,
		Godina:    godina,
	}, nil
}

func NormalizeCourtSlug(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
}

// HumanizeSlug turns "osnovni-sud-u-beogradu" into "Osnovni Sud u Beogradu".
func HumanizeSlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, p := range parts {
		switch {
		case p == "u" || p == "na" || p == "i":
		case p != "":
			r := []rune(p)
			parts[i] = strings.ToUpper(string(r[:1])) + strings.ToLower(string(r[1:]))
		}
	}
	return strings.Join(parts, " ")
}

package extractor

import (
	"regexp"

	"redacted/internal/domain"
)

// Match is one recognizer hit with chunk-local offsets.
type Match struct {
	Start int
	End   int
	Text  string
}

// Recognizer is a single pattern pass over chunk text. TypeOnly recognizers
// (dates, money amounts) carry no redaction-sensitive identity: they are
// exempt from placeholder suppression but still emit nothing when the whole
// match lies inside a redacted region.
type Recognizer struct {
	Type     domain.EntityType
	TypeOnly bool
	re       *regexp.Regexp
}

// Scan returns every non-overlapping match in text.
func (r Recognizer) Scan(text string) []Match {
	var matches []Match
	for _, loc := range r.re.FindAllStringIndex(text, -1) {
		matches = append(matches, Match{
			Start: loc[0],
			End:   loc[1],
			Text:  text[loc[0]:loc[1]],
		})
	}
	return matches
}

// Capitalized word runs of two or more words look like personal names.
var personRecognizer = Recognizer{
	Type: domain.TypePerson,
	re:   regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`),
}

var organizationRecognizer = Recognizer{
	Type: domain.TypeOrganization,
	re: regexp.MustCompile(`(?i)\b(?:FBI|DOJ|CIA|Department of Justice|U\.S\. Attorney|Southern District|Court|Foundation|Inc\.|LLC|Corp\.?|University|Institute)\b`),
}

var locationRecognizer = Recognizer{
	Type: domain.TypeLocation,
	re: regexp.MustCompile(`(?i)\b(?:New York|Los Angeles|Miami|Palm Beach|Little St\. James|Virgin Islands|Manhattan|Florida|California|Nevada|Paris|London)\b`),
}

var dateRecognizer = Recognizer{
	Type:     domain.TypeDate,
	TypeOnly: true,
	re: regexp.MustCompile(`\b(?:\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}|[A-Za-z]+\s+\d{1,2},?\s+\d{4}|\d{4}[/\-]\d{2}[/\-]\d{2}|\d{4})\b`),
}

var amountRecognizer = Recognizer{
	Type:     domain.TypeAmount,
	TypeOnly: true,
	re: regexp.MustCompile(`(?i)\$[\d,]+(?:\.\d{2})?(?:\s*(?:million|billion|thousand))?`),
}

// DefaultRecognizers is the standard recognizer set, applied independently
// per chunk in this order.
func DefaultRecognizers() []Recognizer {
	return []Recognizer{
		personRecognizer,
		organizationRecognizer,
		locationRecognizer,
		dateRecognizer,
		amountRecognizer,
	}
}

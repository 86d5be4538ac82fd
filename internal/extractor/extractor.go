package extractor

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MikeSquared-Agency/sentinel/internal/catalog"
	"github.com/MikeSquared-Agency/sentinel/internal/flow"
)

// intentPriority is the tie-break order: an utterance that mentions both a
// greeting and a problem is a support request.
var intentPriority = []flow.Intent{flow.IntentSupport, flow.IntentSales, flow.IntentGreeting}

// Extractor classifies utterances and pulls caller profile fields out of them
// using the patterns of a catalog.
type Extractor struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

func New(c *catalog.Catalog, logger *zap.Logger) *Extractor {
	return &Extractor{catalog: c, logger: logger}
}

// Intent returns the first intent, in priority order, with a pattern that
// matches text. Empty text and unmatched text are general.
func (e *Extractor) Intent(text string) flow.Intent {
	if strings.TrimSpace(text) == "" {
		return flow.IntentGeneral
	}
	lower := strings.ToLower(text)

	for _, intent := range intentPriority {
		for _, re := range e.catalog.IntentPatterns(intent) {
			if re.MatchString(lower) {
				return intent
			}
		}
	}
	return flow.IntentGeneral
}

// Field returns the normalized value of field found in text. Only the first
// matching extraction pattern is used.
func (e *Extractor) Field(text string, field flow.Field) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	normalize, ok := normalizers[field]
	if !ok {
		return "", false
	}

	for _, re := range e.catalog.ExtractionPatterns(field) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := normalize(strings.TrimSpace(m[1]))
		if value == "" {
			return "", false
		}
		return value, true
	}
	return "", false
}

// All runs Field for every tracked field in canonical order and returns the
// hits.
func (e *Extractor) All(text string) map[flow.Field]string {
	found := make(map[flow.Field]string)
	for _, f := range flow.Fields {
		if v, ok := e.Field(text, f); ok {
			found[f] = v
		} else if e.Mentions(text, f) {
			e.logger.Debug("field mentioned but not extracted", zap.Stringer("field", f))
		}
	}
	return found
}

// Mentions reports whether any trigger pattern for field matches text.
func (e *Extractor) Mentions(text string, field flow.Field) bool {
	for _, re := range e.catalog.TriggerPatterns(field) {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// normalizers holds the per-field cleanup applied to a raw capture.
var normalizers = map[flow.Field]func(string) string{
	flow.FieldName:         normalizeName,
	flow.FieldPolicyNumber: normalizePolicyNumber,
	flow.FieldContactInfo:  func(s string) string { return s },
	flow.FieldInquiryType:  normalizeInquiryType,
}

func normalizeName(raw string) string {
	words := strings.Fields(raw)
	title := cases.Title(language.English)
	for i, w := range words {
		words[i] = title.String(w)
	}
	return strings.Join(words, " ")
}

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// normalizePolicyNumber removes transcription separators, so "P-O-L - 1 2 3"
// becomes "POL123".
func normalizePolicyNumber(raw string) string {
	return strings.ToUpper(nonAlphanumeric.ReplaceAllString(raw, ""))
}

var (
	supportKeywords = []string{"support", "help", "assistance", "problem", "issue", "claim"}
	salesKeywords   = []string{"sales", "buy", "purchase", "quote", "insurance"}
)

func normalizeInquiryType(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case containsAny(lower, supportKeywords):
		return "support"
	case containsAny(lower, salesKeywords):
		return "sales"
	default:
		return lower
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Package input checks and cleans user messages before they reach the
// conversation flow.
package input

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/sentinel/internal/flow"
)

// MaxMessageRunes is the longest message accepted or kept by Sanitize.
const MaxMessageRunes = 1000

var (
	ErrEmpty          = errors.New("message is empty")
	ErrTooLong        = fmt.Errorf("message exceeds %d characters", MaxMessageRunes)
	ErrSuspicious     = errors.New("message contains disallowed content")
	ErrTooManySpecial = errors.New("message is mostly special characters")
	ErrRepetitive     = errors.New("message is too repetitive")
	ErrInvalidField   = errors.New("invalid field value")
)

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)vbscript:`),
}

// Validate reports why msg should be rejected, or nil.
func Validate(msg string) error {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return ErrEmpty
	}
	n := utf8.RuneCountInString(msg)
	if n > MaxMessageRunes {
		return ErrTooLong
	}
	for _, re := range suspiciousPatterns {
		if re.MatchString(msg) {
			return ErrSuspicious
		}
	}

	special := 0
	unique := make(map[rune]struct{})
	for _, r := range msg {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
		unique[unicode.ToLower(r)] = struct{}{}
	}
	if float64(special) > float64(n)*0.5 {
		return ErrTooManySpecial
	}
	if n > 10 && len(unique) < 3 {
		return ErrRepetitive
	}
	return nil
}

// Sanitize trims msg, drops NUL bytes, collapses whitespace runs to a single
// space and truncates to MaxMessageRunes.
func Sanitize(msg string) string {
	msg = strings.ReplaceAll(msg, "\x00", "")
	msg = strings.Join(strings.Fields(msg), " ")
	if utf8.RuneCountInString(msg) > MaxMessageRunes {
		msg = string([]rune(msg)[:MaxMessageRunes])
	}
	return msg
}

var (
	emailShape = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneShape = regexp.MustCompile(`^\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}$`)

	inquiryTypes = map[string]bool{
		"support": true, "sales": true, "general": true,
		"claim": true, "policy": true, "quote": true,
	}
)

// ValidateField checks that a collected profile value has a plausible shape.
func ValidateField(field flow.Field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s: %w", field, ErrInvalidField)
	}

	var ok bool
	switch field {
	case flow.FieldName:
		ok = between(value, 2, 50) && strings.IndexFunc(value, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsSpace(r)
		}) < 0
	case flow.FieldPolicyNumber:
		stripped := strings.NewReplacer("-", "", "_", "").Replace(value)
		ok = between(value, 6, 20) && stripped != "" && strings.IndexFunc(stripped, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) < 0
	case flow.FieldContactInfo:
		ok = emailShape.MatchString(value) || phoneShape.MatchString(value)
	case flow.FieldInquiryType:
		ok = inquiryTypes[strings.ToLower(value)]
	default:
		ok = true
	}
	if !ok {
		return fmt.Errorf("%s: %w", field, ErrInvalidField)
	}
	return nil
}

// ValidFields returns the collected fields of p whose values pass
// ValidateField, in canonical order.
func ValidFields(p flow.Profile) []flow.Field {
	var out []flow.Field
	for _, f := range p.Collected() {
		if ValidateField(f, p.Get(f)) == nil {
			out = append(out, f)
		}
	}
	return out
}

func between(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

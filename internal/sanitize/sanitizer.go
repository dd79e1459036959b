package sanitize

import (
	"html"
	"strings"

	"github.com/go-playground/validator/v10"

	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
)

// Sanitizer cleans raw caller input before it reaches the engine: strings are
// trimmed and HTML-escaped. Email columns are only trimmed; they are checked
// with Email instead.
type Sanitizer struct {
	validate     *validator.Validate
	emailColumns map[string]struct{}
}

func New(emailColumns ...string) *Sanitizer {
	cols := make(map[string]struct{}, len(emailColumns))
	for _, c := range emailColumns {
		cols[c] = struct{}{}
	}
	return &Sanitizer{
		validate:     validator.New(),
		emailColumns: cols,
	}
}

// Default knows the webshop's email columns.
func Default() *Sanitizer {
	return New(domain.ColPartnerEmail)
}

// Value trims and escapes strings; other values pass through unchanged.
func (s *Sanitizer) Value(v any) any {
	switch t := v.(type) {
	case string:
		return html.EscapeString(strings.TrimSpace(t))
	case []byte:
		return html.EscapeString(strings.TrimSpace(string(t)))
	}
	return v
}

// Fields returns a sanitized copy of fields.
func (s *Sanitizer) Fields(fields domain.Fields) domain.Fields {
	out := make(domain.Fields, len(fields))
	for k, v := range fields {
		if _, ok := s.emailColumns[k]; ok {
			if str, isStr := v.(string); isStr {
				out[k] = strings.TrimSpace(str)
				continue
			}
		}
		out[k] = s.Value(v)
	}
	return out
}

// Email trims and strictly validates an address.
func (s *Sanitizer) Email(field string, v any) (string, error) {
	str, ok := v.(string)
	if !ok {
		return "", apperrors.NewValidationError("please provide a valid e-mail address", apperrors.ValidationDetail{
			Field:   field,
			Message: "must be a string",
		})
	}
	str = strings.TrimSpace(str)
	if err := s.validate.Var(str, "required,email"); err != nil {
		return "", apperrors.NewValidationError("please provide a valid e-mail address", apperrors.ValidationDetail{
			Field:   field,
			Message: "must be a valid e-mail address",
		})
	}
	return str, nil
}

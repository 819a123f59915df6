// Package forms turns admin form input into API payloads and back.
package forms

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Fields holds raw form input keyed by the API field name.
type Fields map[string]string

// Get returns the trimmed value of key.
func (f Fields) Get(key string) string {
	return strings.TrimSpace(f[key])
}

// GetOr returns the trimmed value of key, or fallback when it is blank.
func (f Fields) GetOr(key, fallback string) string {
	if v := f.Get(key); v != "" {
		return v
	}
	return fallback
}

// Bool reads a checkbox. Blank means fallback.
func (f Fields) Bool(key string, fallback bool) bool {
	switch strings.ToLower(f.Get(key)) {
	case "":
		return fallback
	case "1", "true", "yes", "y", "on", "x":
		return true
	default:
		return false
	}
}

// FieldError is a validation failure on one field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.Reason
}

// SplitList splits s on sep, trims every entry and drops the empty ones.
func SplitList(s, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinList is the inverse of SplitList for prefilling edit forms.
func JoinList(items []string, sep string) string {
	if sep == "," {
		sep = ", "
	}
	return strings.Join(items, sep)
}

// Slugify lowercases title and joins its alphanumeric runs with dashes.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

type validator struct {
	errs []error
}

func (v *validator) require(f Fields, keys ...string) {
	for _, key := range keys {
		if f.Get(key) == "" {
			v.errs = append(v.errs, &FieldError{Field: key, Reason: "is required"})
		}
	}
}

func (v *validator) float(f Fields, key string) float64 {
	raw := f.Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v.errs = append(v.errs, &FieldError{Field: key, Reason: fmt.Sprintf("must be a number, got %q", raw)})
		return 0
	}
	if n < 0 {
		v.errs = append(v.errs, &FieldError{Field: key, Reason: "must not be negative"})
	}
	return n
}

func (v *validator) int(f Fields, key string) int {
	raw := f.Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.errs = append(v.errs, &FieldError{Field: key, Reason: fmt.Sprintf("must be a whole number, got %q", raw)})
		return 0
	}
	if n < 0 {
		v.errs = append(v.errs, &FieldError{Field: key, Reason: "must not be negative"})
	}
	return n
}

func (v *validator) oneOf(key, value string, allowed []string) {
	for _, a := range allowed {
		if a == value {
			return
		}
	}
	v.errs = append(v.errs, &FieldError{Field: key, Reason: fmt.Sprintf("must be one of %s", strings.Join(allowed, ", "))})
}

func (v *validator) err() error {
	return errors.Join(v.errs...)
}

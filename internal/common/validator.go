package common

import (
	"errors"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
)

// ErrRecordNotFound is returned by every model when the requested document does not exist.
var ErrRecordNotFound = errors.New("record not found")

// ValidationError maps each rejected field to the first problem found with it.
type ValidationError struct {
	Errors map[string]string
}

// Error lists the fields in name order so the message is stable.
func (e ValidationError) Error() string {
	fields := maps.Keys(e.Errors)
	slices.Sort(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Errors[f])
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

type Validator struct {
	Errors map[string]string
}

func NewValidator() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first message recorded for field.
func (v *Validator) AddError(field, message string) {
	if _, ok := v.Errors[field]; !ok {
		v.Errors[field] = message
	}
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// CheckStringLength counts bytes, which is what bcrypt limits.
func (v *Validator) CheckStringLength(s string, min, max int) bool {
	return len(s) >= min && len(s) <= max
}

func (v *Validator) ValidationError() error {
	if v.Valid() {
		return nil
	}
	return ValidationError{Errors: v.Errors}
}

// MaxRunes reports whether s has at most n characters.
func MaxRunes(s string, n int) bool {
	return utf8.RuneCountInString(s) <= n
}

func Matches(s string, rx *regexp.Regexp) bool {
	return rx.MatchString(s)
}

// PermittedValue reports whether value is one of permitted.
func PermittedValue[T comparable](value T, permitted ...T) bool {
	return slices.Contains(permitted, value)
}

// ValidID reports whether id is a document identifier issued by this service.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

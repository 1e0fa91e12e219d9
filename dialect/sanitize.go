package dialect

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// identRe validates SQL identifiers (letter or underscore, then letters,
// digits or underscores).
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// maxIdentLen caps identifier length. 128 covers every supported backend.
const maxIdentLen = 128

// operators is the fixed allow-list of comparison operators that may be
// placed into SQL text. Values compared against them are always bound as
// parameters, never interpolated.
var operators = map[string]struct{}{
	"=":        {},
	"!=":       {},
	"<>":       {},
	"<":        {},
	">":        {},
	"<=":       {},
	">=":       {},
	"LIKE":     {},
	"NOT LIKE": {},
	"IN":       {},
	"NOT IN":   {},
	"IS":       {},
	"IS NOT":   {},
}

// ValidIdentifier reports whether s is a safe SQL identifier.
func ValidIdentifier(s string) bool {
	return s != "" && len(s) <= maxIdentLen && identRe.MatchString(s)
}

// ValidateIdentifier returns an *InvalidIdentifierError if s is not a safe
// SQL identifier.
func ValidateIdentifier(s string) error {
	if !ValidIdentifier(s) {
		return &InvalidIdentifierError{Name: s}
	}
	return nil
}

// NormalizeOperator returns the canonical (upper-case, single-spaced) form
// of op, or an *UnsupportedOperatorError if op is not in the allow-list.
func NormalizeOperator(op string) (string, error) {
	canon := strings.ToUpper(strings.Join(strings.Fields(op), " "))
	if _, ok := operators[canon]; !ok {
		return "", &UnsupportedOperatorError{Op: op}
	}
	return canon, nil
}

// ValidOperator reports whether op is in the operator allow-list.
func ValidOperator(op string) bool {
	_, err := NormalizeOperator(op)
	return err == nil
}

// NormalizeDirection returns the canonical form of a sort direction
// ("ASC" or "DESC", matched case-insensitively), or an
// *UnsupportedOperatorError for anything else.
func NormalizeDirection(dir string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "ASC":
		return "ASC", nil
	case "DESC":
		return "DESC", nil
	}
	return "", &UnsupportedOperatorError{Op: dir}
}

// ValidDirection reports whether dir is a valid sort direction.
func ValidDirection(dir string) bool {
	_, err := NormalizeDirection(dir)
	return err == nil
}

// InvalidIdentifierError is returned when a caller-supplied table or column
// name fails identifier validation. It indicates a programmer error and is
// never retried.
type InvalidIdentifierError struct {
	Name string
}

// Error returns the error string.
func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("dialect: invalid identifier %q", e.Name)
}

// IsInvalidIdentifier returns true if the error is an InvalidIdentifierError.
func IsInvalidIdentifier(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidIdentifierError
	return errors.As(err, &e)
}

// UnsupportedOperatorError is returned when a caller-supplied comparison
// operator or sort direction is not in the allow-list.
type UnsupportedOperatorError struct {
	Op string
}

// Error returns the error string.
func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("dialect: unsupported operator %q", e.Op)
}

// IsUnsupportedOperator returns true if the error is an UnsupportedOperatorError.
func IsUnsupportedOperator(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedOperatorError
	return errors.As(err, &e)
}

package features

import "fmt"

// InvalidInputError reports a malformed or missing sensor field, or a
// categorical value outside the trained vocabulary. The offending field is
// always named so the caller can surface it; the input is never partially
// processed.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid input: field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: missing field %q", e.Field)
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. A *ParseError unwraps to exactly one of these.
var (
	ErrMalformedHeader   = errors.New("malformed header")
	ErrMalformedOutlook  = errors.New("malformed outlook")
	ErrUnrecognizedToken = errors.New("unrecognized token")
	ErrAmbiguousToken    = errors.New("ambiguous token")
	ErrIntervalInversion = errors.New("interval inversion")
)

// ParseError describes where and why an entry failed to parse.
type ParseError struct {
	Kind     error
	Token    string
	Position int // index into the entry's flattened tokens
	Line     int
	State    ElementKind
	// Expected lists the element kinds reachable from State. For ambiguous
	// tokens it lists the competing candidates instead.
	Expected []ElementKind
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %q at token %d (line %d) after %s", e.Kind, e.Token, e.Position, e.Line+1, e.State)
	if len(e.Expected) > 0 {
		names := make([]string, len(e.Expected))
		for i, k := range e.Expected {
			names[i] = k.String()
		}
		label := "expected one of"
		if errors.Is(e.Kind, ErrAmbiguousToken) {
			label = "candidates"
		}
		fmt.Fprintf(&b, "; %s [%s]", label, strings.Join(names, " "))
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Kind }

// FailureKind returns a stable snake_case label for err, suitable for metric
// labels and failure records.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedHeader):
		return "malformed_header"
	case errors.Is(err, ErrMalformedOutlook):
		return "malformed_outlook"
	case errors.Is(err, ErrUnrecognizedToken):
		return "unrecognized_token"
	case errors.Is(err, ErrAmbiguousToken):
		return "ambiguous_token"
	case errors.Is(err, ErrIntervalInversion):
		return "interval_inversion"
	default:
		return "other"
	}
}

// Package evaluator defines the pluggable contract a host implements to
// give CMD text meaning. The Channel knows nothing about the host language;
// swapping the Evaluator retargets the core to a different host without the
// transport or framing code caring.
package evaluator

import "fmt"

// Evaluator compiles and runs CMD text in a host evaluation environment.
type Evaluator interface {
	// Evaluate runs text and returns either a success value or an error.
	// Implementations must capture the host's own evaluation errors and
	// return them rather than panicking — a panicking Evaluate would take
	// down the dispatch goroutine along with the Channel.
	Evaluate(text string) (value any, err error)

	// Stringify converts a successful value into a text representation
	// that round-trips through the host: full precision for floating
	// point, a canonical representation for void/empty.
	Stringify(value any) string
}

// Func adapts a pair of plain functions to the Evaluator interface, in the
// style of http.HandlerFunc: most evaluators are a couple of functions and
// don't need a named type.
type Func struct {
	EvaluateFunc  func(text string) (any, error)
	StringifyFunc func(value any) string
}

func (f Func) Evaluate(text string) (any, error) {
	return f.EvaluateFunc(text)
}

func (f Func) Stringify(value any) string {
	if f.StringifyFunc != nil {
		return f.StringifyFunc(value)
	}
	return defaultStringify(value)
}

func defaultStringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(value)
	}
}

package step

import (
	"errors"
	"fmt"

	"github.com/tomatool/tomato-ui/internal/page"
)

var (
	ErrUnsupportedAction  = errors.New("unsupported action")
	ErrMethodNotFound     = errors.New("method not found")
	ErrMalformedArgument  = page.ErrMalformedArgument
	ErrUnknownDataType    = errors.New("unknown data type")
	ErrUnresolvedVariable = errors.New("unresolved variable")
)

// AssertionError is returned when an assertion step does not hold
type AssertionError struct {
	Kind     string
	Actual   any
	Expected any
	Reason   string
}

func (e *AssertionError) Error() string {
	var msg string
	switch e.Kind {
	case KindGreaterThan:
		msg = fmt.Sprintf("assertion failed: actual [%v] is not greater than expected [%v]", e.Actual, e.Expected)
	default:
		msg = fmt.Sprintf("assertion failed: actual [%v] != expected [%v]", e.Actual, e.Expected)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// IsAssertion reports whether err is or wraps an *AssertionError
func IsAssertion(err error) bool {
	var ae *AssertionError
	return errors.As(err, &ae)
}

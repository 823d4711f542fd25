package step

import (
	"github.com/google/go-cmp/cmp"
)

// Assertion kinds
const (
	KindEqual       = "equal"
	KindGreaterThan = "greater_than"
	KindTrue        = "true"
)

// Result is the outcome of a comparison
type Result struct {
	Passed   bool
	Kind     string
	Actual   any
	Expected any
	Reason   string
}

// Err returns nil for a passing result, an *AssertionError otherwise
func (r Result) Err() error {
	if r.Passed {
		return nil
	}
	return &AssertionError{Kind: r.Kind, Actual: r.Actual, Expected: r.Expected, Reason: r.Reason}
}

// Equal compares numbers by value regardless of their Go type, anything else deeply
func Equal(actual, expected any) Result {
	r := Result{Kind: KindEqual, Actual: actual, Expected: expected}
	a, aok := number(actual)
	e, eok := number(expected)
	if aok && eok {
		r.Passed = a == e
		return r
	}
	r.Passed = cmp.Equal(actual, expected)
	return r
}

// GreaterThan compares two numbers or two strings
func GreaterThan(actual, expected any) Result {
	r := Result{Kind: KindGreaterThan, Actual: actual, Expected: expected}
	if a, ok := number(actual); ok {
		if e, ok := number(expected); ok {
			r.Passed = a > e
			return r
		}
	}
	if a, ok := actual.(string); ok {
		if e, ok := expected.(string); ok {
			r.Passed = a > e
			return r
		}
	}
	r.Reason = "values are not comparable"
	return r
}

// True passes only for the boolean true
func True(actual any) Result {
	b, ok := actual.(bool)
	return Result{Kind: KindTrue, Actual: actual, Expected: true, Passed: ok && b}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

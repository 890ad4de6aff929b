package jsonld

import "fmt"

// ParseError wraps the original failure behind a malformed wire payload.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed document: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// TypeMismatchError reports a decoded @type that does not match what the
// endpoint or serializer expected.
type TypeMismatchError struct {
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("wrong type: expected %s, got %s", e.Expected, e.Actual)
}

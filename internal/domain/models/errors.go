package models

import "fmt"

// MalformedInputError reports source data that is missing required columns or
// cannot be coerced to numbers. Never retried.
type MalformedInputError struct {
	Column string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("malformed input: column %q: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("malformed input: %s", e.Reason)
}

// RangeError reports invalid window bounds. The caller must fix parameters.
type RangeError struct {
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("window range: %s", e.Reason)
}

// MalformedResponseError reports a forecasting service response that violates
// the expected shape. Fatal for the call, never silently coerced.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %s", e.Reason)
}

package collection

import "fmt"

// TransportError reports a failed request against the upstream API: either
// the request itself failed or the response status was outside the 2xx range.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}

	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DataFormatError reports an upstream response that does not match the
// documented payload shape, including malformed collection dates.
type DataFormatError struct {
	Reason string
	Err    error
}

func (e *DataFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected response format: %s: %v", e.Reason, e.Err)
	}

	return fmt.Sprintf("unexpected response format: %s", e.Reason)
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}

// ArgumentNotFoundError reports a street or house number the upstream API
// does not know, together with the valid values the caller can offer as
// suggestions.
type ArgumentNotFoundError struct {
	Field       string
	Value       string
	Suggestions []string
}

func (e *ArgumentNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found, %d suggestions available", e.Field, e.Value, len(e.Suggestions))
}

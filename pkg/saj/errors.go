package saj

import "errors"

var (
	// ErrNetwork marks a round trip that did not complete: transport error,
	// timeout, cancelled context or a non-2xx status.
	ErrNetwork = errors.New("saj: network failure")
	// ErrStructure marks a response body that could not be decoded into the
	// expected document shape.
	ErrStructure = errors.New("saj: structural decode failure")
	// ErrField marks a single field that is absent, malformed or out of range.
	ErrField = errors.New("saj: field decode failure")
)

package enginefast

import (
	"errors"
	"fmt"
)

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string { return fmt.Sprintf("engine %s: request failed: %v", e.Path, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx engine answer.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine api error: path=%s status=%d body=%s", e.Path, e.Status, e.Body)
}

// DecodeError means the body did not have the expected shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("engine %s: decode response: %v", e.Path, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// IsMalformed reports whether err came from an unparseable or invalid response body.
func IsMalformed(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

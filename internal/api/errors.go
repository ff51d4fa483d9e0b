package api

import (
	"fmt"
	"net/http"
)

// NetworkError is a transport failure: DNS, refused connection, or a body
// that broke off mid-read.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RequestFailedError is a non-2xx answer from the service.
type RequestFailedError struct {
	Status int
	Body   string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed: %d %s - %s", e.Status, http.StatusText(e.Status), e.Body)
}

// DecodeError is a 2xx body that could not be turned into text.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

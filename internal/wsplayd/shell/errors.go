package shell

import "net/http"

// HTTPError is an error with an HTTP status and an API error code
type HTTPError interface {
	error
	StatusCode() int
	Code() string
}

type httpError struct {
	msg    string
	code   string
	status int
}

func (e *httpError) Error() string {
	return e.msg
}

func (e *httpError) StatusCode() int {
	return e.status
}

func (e *httpError) Code() string {
	return e.code
}

func ErrInvalidRequest(msg string) error {
	return &httpError{msg: msg, code: "INVALID_REQUEST", status: http.StatusBadRequest}
}

func ErrNotFound(msg string) error {
	return &httpError{msg: msg, code: "NOT_FOUND", status: http.StatusNotFound}
}

func ErrUnavailable(msg string) error {
	return &httpError{msg: msg, code: "UNAVAILABLE", status: http.StatusServiceUnavailable}
}

package dozererr

import (
	"errors"
	"net/http"

	"gocloud.dev/gcerrors"
)

// HTTPStatusCodeError tags err with the HTTP status
// code that it should be responded to with.
func HTTPStatusCodeError(err error, httpStatusCode int) error {
	if err == nil {
		return nil
	}

	if 600 <= httpStatusCode || httpStatusCode < 100 {
		httpStatusCode = http.StatusInternalServerError
	}

	return &httpStatusCodeError{
		err:            err,
		httpStatusCode: httpStatusCode,
	}
}

type httpStatusCodeError struct {
	err            error
	httpStatusCode int
}

func (e *httpStatusCodeError) Error() string {
	if e.err == nil {
		return ""
	}

	return e.err.Error()
}

func (e *httpStatusCodeError) Unwrap() error {
	return e.err
}

// HTTPStatusCode returns the HTTP status code that err was tagged with.
// Untagged errors from gocloud.dev are mapped by their error code.
func HTTPStatusCode(err error) int {
	hscerr := &httpStatusCodeError{}
	if errors.As(err, &hscerr) {
		return hscerr.httpStatusCode
	}

	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return http.StatusNotFound
	case gcerrors.InvalidArgument:
		return http.StatusBadRequest
	case gcerrors.PermissionDenied:
		return http.StatusForbidden
	case gcerrors.DeadlineExceeded:
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

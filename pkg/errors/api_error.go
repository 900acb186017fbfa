package errors

import (
	"fmt"

	"hls-downloader/pkg/errors/i18n"
)

// APIError is what the HTTP surface hands back to clients: a stable code and
// a localised message. The wrapped error is only logged.
type APIError struct {
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

const (
	CodeTaskNotFound      = "task_not_found"
	CodeInvalidRequest    = "invalid_request"
	CodeInvalidState      = "invalid_state"
	CodeManifestInvalid   = "manifest_invalid"
	CodeManifestFetch     = "manifest_fetch_failed"
	CodeVariantNotFound   = "variant_not_found"
	CodeNetworkRestricted = "network_restricted"
	CodeInternal          = "internal_error"
)

func newAPIError(code string, err error) *APIError {
	return &APIError{Code: code, Message: i18n.T(code), Err: err}
}

var (
	ErrTaskNotFound = func(err error) *APIError {
		return newAPIError(CodeTaskNotFound, err)
	}
	ErrInvalidRequest = func(err error) *APIError {
		return newAPIError(CodeInvalidRequest, err)
	}
	ErrInvalidState = func(err error) *APIError {
		return newAPIError(CodeInvalidState, err)
	}
	ErrManifestInvalid = func(err error) *APIError {
		return newAPIError(CodeManifestInvalid, err)
	}
	ErrManifestFetch = func(err error) *APIError {
		return newAPIError(CodeManifestFetch, err)
	}
	ErrVariantNotFound = func(err error) *APIError {
		return newAPIError(CodeVariantNotFound, err)
	}
	ErrNetworkDenied = func(err error) *APIError {
		return newAPIError(CodeNetworkRestricted, err)
	}
	ErrInternal = func(err error) *APIError {
		return newAPIError(CodeInternal, err)
	}
)

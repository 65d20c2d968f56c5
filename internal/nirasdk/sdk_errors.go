package nirasdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/imroc/req/v3"
)

var (
	ErrNoCredentials       = errors.New("sdk: no api key configured")
	ErrNoOrg               = errors.New("sdk: org missing")
	ErrNoAuthURL           = errors.New("sdk: auth url missing")
	ErrEmptyToken          = errors.New("sdk: auth server returned an empty token")
	ErrNoUploadServiceHost = errors.New("sdk: job response has no uploadServiceHost")
	ErrInvalidAssetRef     = errors.New("sdk: asset reference must be a url or a 22 character short uuid")
)

// AuthError is returned when no credential is configured or the token
// exchange with the auth server fails. It is always fatal for the caller.
type AuthError struct {
	Org string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("sdk: authorize %s: %v", e.Org, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError is a request that still failed after the transport retry
// policy gave up. Body holds the server response, when there was one.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sdk: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sdk: %s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *TransportError) Unwrap() error { return e.Err }

// handleAPIError converts a finished req call into a *TransportError.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		if errors.Is(requestErr, context.Canceled) || errors.Is(requestErr, context.DeadlineExceeded) {
			return fmt.Errorf("sdk: %s: %w", operation, requestErr)
		}
		terr := &TransportError{Op: operation, Err: requestErr}
		if resp != nil && resp.Response != nil {
			terr.StatusCode = resp.StatusCode
		}
		return terr
	}

	if !resp.IsSuccessState() {
		return &TransportError{
			Op:         operation,
			StatusCode: resp.StatusCode,
			Body:       resp.String(),
		}
	}

	return nil
}

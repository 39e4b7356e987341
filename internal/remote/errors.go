package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Error taxonomy surfaced to callers. Requests wrap exactly one of these
// sentinels so callers can branch with errors.Is.
var (
	// ErrAuthentication indicates the server rejected the access token.
	ErrAuthentication = errors.New("authentication rejected")
	// ErrValidation indicates the server (or the client, pre-flight)
	// considered the request arguments malformed.
	ErrValidation = errors.New("invalid request")
	// ErrNotFound indicates the addressed run or resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrServer indicates a server-side failure.
	ErrServer = errors.New("server error")
	// ErrConnection indicates a network or transport failure before any
	// server response was received.
	ErrConnection = errors.New("connection failure")
)

func mapResponse(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuthentication, body)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrValidation, body)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body)
	default:
		if resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("%w: http %d: %s", ErrServer, resp.StatusCode(), body)
		}
		return fmt.Errorf("http %d: %s", resp.StatusCode(), body)
	}
}

func connErr(operation string, err error) error {
	return fmt.Errorf("%s: %w: %v", operation, ErrConnection, err)
}

package voices

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// UnknownErrorMessage is reported when a failure carries no message.
const UnknownErrorMessage = "Unknown error"

// ErrInvalidBaseURL is returned by NewClient for unusable base URLs.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// Errors returned for listing bodies that are valid JSON but not a listing.
var (
	ErrNullBody     = errors.New("voice listing is null")
	ErrTrailingData = errors.New("unexpected data after voice listing")
)

// FetchError reports a listing response with a non-success status.
type FetchError struct {
	StatusCode int    // HTTP status code
	Status     string // status text, e.g. "Internal Server Error"
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return "Failed to fetch voices: " + e.Status
}

// newFetchError builds a FetchError from a response status line.
func newFetchError(resp *http.Response) *FetchError {
	return &FetchError{
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
	}
}

// statusText returns the reason phrase of a response, without the code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	// servers may omit the reason phrase; use the standard one instead of
	// an empty message
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// ErrorMessage returns the message stored in the loader's error cell for
// err. Errors without a message map to UnknownErrorMessage.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}

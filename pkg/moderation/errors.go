package moderation

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// Moderation failures are httperrors so they surface unchanged through the API:
//
//	NotFound    404  request or target missing, e.g. removed by a concurrent approval
//	Conflict    409  lost optimistic race, invalid transition or duplicate pending request
//	Validation  400  bad proposed fields, kind or category
//	Fetch       503  queue or record fetch failed

// NotFound reports a missing request or target
func NotFound(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusNotFound, format, args...)
}

// Conflict reports a lost race or an invalid transition
func Conflict(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusConflict, format, args...)
}

// Validation reports bad input
func Validation(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusBadRequest, format, args...)
}

// FetchFailure reports a failed read. Not-found and other client errors pass through.
func FetchFailure(what string, err error) error {
	if err == nil {
		return nil
	}
	if httperror.IsHTTPError(err) && httperror.GetStatusCode(err) < http.StatusInternalServerError {
		return err
	}
	return httperror.NewHTTPErrorf(http.StatusServiceUnavailable, "failed to fetch %s: %s", what, err.Error())
}

func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func IsValidation(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

func IsFetchFailure(err error) bool {
	return hasStatus(err, http.StatusServiceUnavailable)
}

func hasStatus(err error, code int) bool {
	return err != nil && httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == code
}

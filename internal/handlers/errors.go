package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/damacus/iron-shelf/internal/services"
)

// errorStatus maps a FileService error to the HTTP status returned to the browser or API client
func errorStatus(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, services.ErrInvalidName), errors.Is(err, services.ErrConfirmationRequired):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, services.ErrAuthorization):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrConnectivity):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorKind is the machine-readable "kind" of a JSON error body
func errorKind(err error) string {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return "request"
	case errors.Is(err, services.ErrBusy):
		return "busy"
	case errors.Is(err, services.ErrConfirmationRequired):
		return "confirmation_required"
	case errors.Is(err, services.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, services.ErrAuthorization):
		return "authorization"
	case errors.Is(err, services.ErrConnectivity):
		return "connectivity"
	case errors.Is(err, services.ErrUpload):
		return "upload"
	case errors.Is(err, services.ErrDelete):
		return "delete"
	case errors.Is(err, services.ErrRename):
		return "rename"
	default:
		return "internal"
	}
}

func isDuplicate(err error) bool {
	var opErr *services.OpError
	return errors.As(err, &opErr) && opErr.Duplicate
}

// noticeMessage is the text shown to the user for err
func noticeMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fmt.Sprint(he.Message)
	}
	switch {
	case errors.Is(err, services.ErrBusy):
		return "Another operation is in progress. Try again when it finishes."
	case errors.Is(err, services.ErrConfirmationRequired):
		return "Delete was not confirmed."
	case isDuplicate(err):
		return "The file was copied to its new name but the original could not be removed. Both files now exist."
	}

	action := "Operation failed"
	switch {
	case errors.Is(err, services.ErrUpload):
		action = "Upload failed"
	case errors.Is(err, services.ErrDelete):
		action = "Delete failed"
	case errors.Is(err, services.ErrRename):
		action = "Rename failed"
	case errors.Is(err, services.ErrConnectivity), errors.Is(err, services.ErrAuthorization):
		action = "Could not load files"
	}

	switch {
	case errors.Is(err, services.ErrInvalidName):
		return action + ": the file name is empty or invalid."
	case errors.Is(err, services.ErrAuthorization):
		return action + ": the storage service rejected the credentials."
	case errors.Is(err, services.ErrConnectivity):
		return action + ": the storage service could not be reached."
	default:
		return action + "."
	}
}

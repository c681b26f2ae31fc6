package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/damacus/iron-shelf/internal/models"
	"github.com/damacus/iron-shelf/internal/services"
)

// APIError is the JSON body of every failed API call
type APIError struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Duplicate bool   `json:"duplicate"`
}

// ListResponse is the body of GET /api/files
type ListResponse struct {
	Prefix  string               `json:"prefix"`
	Entries []models.ObjectEntry `json:"entries"`
}

// RenameRequest is the body of POST /api/files/rename
type RenameRequest struct {
	Key     string `json:"key" form:"key"`
	NewName string `json:"newName" form:"newName"`
}

// APIHandler exposes the file operations as JSON. It shares the busy gate
// with the HTML handlers.
type APIHandler struct {
	files *services.FileService
	gate  *services.OperationGate
	log   zerolog.Logger
}

func NewAPIHandler(files *services.FileService, gate *services.OperationGate, log zerolog.Logger) *APIHandler {
	return &APIHandler{files: files, gate: gate, log: log}
}

// List handles GET /api/files
func (h *APIHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	release, err := h.gate.Enter(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	defer release()

	entries, err := h.files.List(ctx, h.files.Prefix())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ListResponse{Prefix: h.files.Prefix(), Entries: entries})
}

// Upload handles POST /api/files (multipart field "file")
func (h *APIHandler) Upload(c echo.Context) error {
	release, err := h.gate.TryEnter()
	if err != nil {
		return h.fail(c, err)
	}
	defer release()

	file, err := c.FormFile("file")
	if err != nil {
		return h.fail(c, echo.NewHTTPError(http.StatusBadRequest, "No file uploaded"))
	}
	src, err := file.Open()
	if err != nil {
		return h.fail(c, err)
	}
	defer func() { _ = src.Close() }()

	entry, err := h.files.Upload(c.Request().Context(), models.PendingUpload{
		Name:        file.Filename,
		ContentType: file.Header.Get(echo.HeaderContentType),
		Size:        file.Size,
		Body:        src,
	}, h.files.Prefix())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// Rename handles POST /api/files/rename
func (h *APIHandler) Rename(c echo.Context) error {
	var req RenameRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body"))
	}
	if req.Key == "" {
		return h.fail(c, echo.NewHTTPError(http.StatusBadRequest, "key is required"))
	}

	release, err := h.gate.TryEnter()
	if err != nil {
		return h.fail(c, err)
	}
	defer release()

	entry, err := h.files.Rename(c.Request().Context(), req.Key, h.files.Prefix(), req.NewName)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// Delete handles DELETE /api/files?key=&confirm=true
func (h *APIHandler) Delete(c echo.Context) error {
	key := c.QueryParam("key")
	if key == "" {
		return h.fail(c, echo.NewHTTPError(http.StatusBadRequest, "key is required"))
	}
	if c.QueryParam("confirm") != "true" {
		return h.fail(c, services.ErrConfirmationRequired)
	}

	release, err := h.gate.TryEnter()
	if err != nil {
		return h.fail(c, err)
	}
	defer release()

	if err := h.files.Delete(c.Request().Context(), key); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) fail(c echo.Context, err error) error {
	status := errorStatus(err)
	event := h.log.Error()
	if status < http.StatusInternalServerError {
		event = h.log.Warn()
	}
	event.Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("api request failed")

	return c.JSON(status, APIError{
		Error:     err.Error(),
		Kind:      errorKind(err),
		Duplicate: isDuplicate(err),
	})
}

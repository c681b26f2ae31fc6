package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/damacus/iron-shelf/internal/models"
	"github.com/damacus/iron-shelf/internal/services"
)

// FilesHandlerOptions carries page settings that do not affect file operations
type FilesHandlerOptions struct {
	UsageEnabled   bool
	MaxUploadBytes int64
}

// FilesHandler serves the file manager page and its htmx fragments
type FilesHandler struct {
	files *services.FileService
	gate  *services.OperationGate
	log   zerolog.Logger
	opts  FilesHandlerOptions
}

func NewFilesHandler(files *services.FileService, gate *services.OperationGate, log zerolog.Logger, opts FilesHandlerOptions) *FilesHandler {
	return &FilesHandler{files: files, gate: gate, log: log, opts: opts}
}

// Index renders the full page. A failed listing still renders the page,
// with the error in the notice area.
func (h *FilesHandler) Index(c echo.Context) error {
	view := h.view(c)
	status := http.StatusOK

	entries, err := h.list(c)
	if err != nil {
		h.logFailure(c, err)
		view.Notice = models.NewNotice(false, noticeMessage(err))
		status = errorStatus(err)
	}
	view.Entries = entries

	return c.Render(status, "files", view)
}

// Grid re-renders the file grid. It also discards any open rename draft.
func (h *FilesHandler) Grid(c echo.Context) error {
	entries, err := h.list(c)
	if err != nil {
		return h.fail(c, err)
	}
	return h.renderGrid(c, entries, nil, nil)
}

// RenameForm renders the grid with a rename draft open for ?key=.
func (h *FilesHandler) RenameForm(c echo.Context) error {
	key := c.QueryParam("key")
	if key == "" {
		return h.fail(c, echo.NewHTTPError(http.StatusBadRequest, "No file selected"))
	}

	entries, err := h.list(c)
	if err != nil {
		return h.fail(c, err)
	}

	draft := &models.RenameDraft{Key: key, NewName: strings.TrimPrefix(key, h.files.Prefix())}
	return h.renderGrid(c, entries, draft, nil)
}

// Upload stores the multipart "file" field under the configured prefix
func (h *FilesHandler) Upload(c echo.Context) error {
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

	_, err = h.files.Upload(c.Request().Context(), models.PendingUpload{
		Name:        file.Filename,
		ContentType: file.Header.Get(echo.HeaderContentType),
		Size:        file.Size,
		Body:        src,
	}, h.files.Prefix())
	if err != nil {
		return h.fail(c, err)
	}

	return h.afterMutation(c, "Upload complete")
}

// Rename moves "key" to "newName" within the configured prefix
func (h *FilesHandler) Rename(c echo.Context) error {
	release, err := h.gate.TryEnter()
	if err != nil {
		return h.fail(c, err)
	}
	defer release()

	key := c.FormValue("key")
	if key == "" {
		return h.fail(c, echo.NewHTTPError(http.StatusBadRequest, "No file selected"))
	}

	if _, err := h.files.Rename(c.Request().Context(), key, h.files.Prefix(), c.FormValue("newName")); err != nil {
		return h.fail(c, err)
	}

	return h.afterMutation(c, "Renamed")
}

// Delete removes "key". The request must carry confirm=true.
func (h *FilesHandler) Delete(c echo.Context) error {
	if c.FormValue("confirm") != "true" {
		return h.fail(c, services.ErrConfirmationRequired)
	}

	release, err := h.gate.TryEnter()
	if err != nil {
		return h.fail(c, err)
	}
	defer release()

	key := c.FormValue("key")
	if key == "" {
		return h.fail(c, echo.NewHTTPError(http.StatusBadRequest, "No file selected"))
	}

	if err := h.files.Delete(c.Request().Context(), key); err != nil {
		return h.fail(c, err)
	}

	return h.afterMutation(c, "Deleted")
}

// list waits for the busy gate and lists the configured prefix
func (h *FilesHandler) list(c echo.Context) ([]models.ObjectEntry, error) {
	ctx := c.Request().Context()
	release, err := h.gate.Enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return h.files.List(ctx, h.files.Prefix())
}

// afterMutation refreshes the grid while the gate is still held by the
// mutation, so the listing reflects it.
func (h *FilesHandler) afterMutation(c echo.Context, message string) error {
	if !IsHTMX(c) {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	entries, err := h.files.List(c.Request().Context(), h.files.Prefix())
	if err != nil {
		return h.fail(c, err)
	}
	HTMXTrigger(c, "refresh-usage")
	return h.renderGrid(c, entries, nil, models.NewNotice(true, message))
}

func (h *FilesHandler) renderGrid(c echo.Context, entries []models.ObjectEntry, draft *models.RenameDraft, notice *models.Notice) error {
	view := h.view(c)
	view.Entries = entries
	view.Draft = draft
	view.Notice = notice
	view.Partial = true
	return c.Render(http.StatusOK, "file_grid", view)
}

// fail logs err and renders it into the notice area, leaving the grid as it is
func (h *FilesHandler) fail(c echo.Context, err error) error {
	h.logFailure(c, err)
	HTMXRetarget(c, noticeTarget)
	return c.Render(errorStatus(err), "notice", models.NewNotice(false, noticeMessage(err)))
}

func (h *FilesHandler) logFailure(c echo.Context, err error) {
	event := h.log.Error()
	if errorStatus(err) < http.StatusInternalServerError {
		event = h.log.Warn()
	}
	event.Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Bool("duplicate", isDuplicate(err)).
		Msg("file operation failed")
}

func (h *FilesHandler) view(c echo.Context) models.FilesView {
	return models.FilesView{
		CSRFToken:    csrfToken(c),
		UsageEnabled: h.opts.UsageEnabled,
		MaxUploadMB:  h.opts.MaxUploadBytes / (1 << 20),
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCSRFApp() *echo.Echo {
	e := echo.New()
	e.Use(CSRF())
	e.GET("/", func(c echo.Context) error {
		token, _ := c.Get(CSRFContextKey).(string)
		return c.String(http.StatusOK, token)
	})
	e.POST("/files/delete", func(c echo.Context) error {
		return c.String(http.StatusOK, "deleted")
	})
	e.POST("/api/files/rename", func(c echo.Context) error {
		return c.String(http.StatusOK, "renamed")
	})
	return e
}

// issueToken fetches a page and returns the rendered token and its cookie.
func issueToken(t *testing.T, e *echo.Echo) (string, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	token := strings.TrimSpace(rec.Body.String())
	require.NotEmpty(t, token)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "_shelf_csrf" {
			return token, cookie
		}
	}
	t.Fatal("no CSRF cookie issued")
	return "", nil
}

func TestCSRF_RejectsHtmxPostWithoutToken(t *testing.T) {
	e := newCSRFApp()

	req := httptest.NewRequest(http.MethodPost, "/files/delete", strings.NewReader("key=uploads/a.png&confirm=true"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCSRF_AllowsHtmxPostWithTokenAndCookie(t *testing.T) {
	e := newCSRFApp()
	token, csrfCookie := issueToken(t, e)
	assert.True(t, csrfCookie.HttpOnly)

	req := httptest.NewRequest(http.MethodPost, "/files/delete", strings.NewReader("key=uploads/a.png&confirm=true"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("HX-Request", "true")
	req.Header.Set(CSRFHeader, token)
	req.AddCookie(csrfCookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRF_RejectsPlainFormPostWithoutToken(t *testing.T) {
	e := newCSRFApp()

	req := httptest.NewRequest(http.MethodPost, "/files/delete", strings.NewReader("key=uploads/a.png&confirm=true"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "deleted")
}

func TestCSRF_AllowsPlainFormPostWithFormToken(t *testing.T) {
	e := newCSRFApp()
	token, csrfCookie := issueToken(t, e)

	body := "key=uploads/a.png&confirm=true&" + CSRFFormField + "=" + token
	req := httptest.NewRequest(http.MethodPost, "/files/delete", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(csrfCookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRF_APIClients(t *testing.T) {
	tests := []struct {
		name      string
		fetchSite string
		want      int
	}{
		{"no fetch metadata", "", http.StatusOK},
		{"same origin", "same-origin", http.StatusOK},
		{"direct navigation", "none", http.StatusOK},
		{"cross site", "cross-site", http.StatusForbidden},
		{"same site without token", "same-site", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newCSRFApp()
			req := httptest.NewRequest(http.MethodPost, "/api/files/rename", strings.NewReader("key=uploads/a.png&newName=b.png"))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			if tt.fetchSite != "" {
				req.Header.Set("Sec-Fetch-Site", tt.fetchSite)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

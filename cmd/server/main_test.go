package main

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/damacus/iron-shelf/internal/config"
	"github.com/damacus/iron-shelf/internal/handlers"
	"github.com/damacus/iron-shelf/internal/metrics"
	"github.com/damacus/iron-shelf/internal/services"
)

var uploadTime = time.UnixMilli(1699000000000)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Addr: ":0", UploadMaxBytes: 1 << 20},
		Log:    config.LogConfig{Level: "debug", Format: "json"},
		Store: config.StoreConfig{
			Backend:       config.BackendMemory,
			Bucket:        "photos",
			Region:        "eu-west-1",
			Prefix:        "uploads/",
			PublicBaseURL: "https://photos.s3.eu-west-1.amazonaws.com",
		},
		Rename: config.RenameConfig{DeleteAttempts: 2, DeleteBackoff: time.Millisecond, DeleteMaxBackoff: time.Millisecond},
	}
}

type testApp struct {
	e       *echo.Echo
	metrics *metrics.Recorder
}

func newTestApp(cfg *config.Config, store services.ObjectStore, usage handlers.UsageReader) *testApp {
	recorder := metrics.NewRecorder(nil)
	return &testApp{
		e: newServer(serverDeps{
			Config:  cfg,
			Logger:  zerolog.Nop(),
			Store:   store,
			Usage:   usage,
			Metrics: recorder,
			Now:     func() time.Time { return uploadTime },
		}),
		metrics: recorder,
	}
}

var csrfMeta = regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)">`)

// browser replays the CSRF cookie and token the way the htmx page does
type browser struct {
	t      *testing.T
	app    *testApp
	token  string
	cookie *http.Cookie
	auth   [2]string
}

func (b *browser) open() *httptest.ResponseRecorder {
	b.t.Helper()
	rec := b.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(b.t, http.StatusOK, rec.Code, rec.Body.String())

	match := csrfMeta.FindStringSubmatch(rec.Body.String())
	require.Len(b.t, match, 2, "page carries a CSRF token")
	b.token = match[1]
	for _, c := range rec.Result().Cookies() {
		if c.Name == "_shelf_csrf" {
			b.cookie = c
		}
	}
	require.NotNil(b.t, b.cookie)
	return rec
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	if b.auth[0] != "" {
		req.SetBasicAuth(b.auth[0], b.auth[1])
	}
	rec := httptest.NewRecorder()
	b.app.e.ServeHTTP(rec, req)
	return rec
}

func (b *browser) htmx(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("HX-Request", "true")
	req.Header.Set("X-CSRF-Token", b.token)
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	return b.do(req)
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.htmx(httptest.NewRequest(http.MethodGet, target, nil))
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return b.htmx(req)
}

func (b *browser) upload(filename, content string) *httptest.ResponseRecorder {
	b.t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(b.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(b.t, err)
	require.NoError(b.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return b.htmx(req)
}

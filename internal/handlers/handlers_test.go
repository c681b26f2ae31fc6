package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/damacus/iron-shelf/internal/services"
)

var fixedNow = time.UnixMilli(1700000000000)

// recordingRenderer keeps the last template name and data instead of writing HTML
type recordingRenderer struct {
	name string
	data interface{}
}

func (r *recordingRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	r.name = name
	r.data = data
	return nil
}

// flakyStore is a MemoryStore whose operations can be made to fail
type flakyStore struct {
	*services.MemoryStore
	listErr   error
	putErr    error
	deleteErr error
	copyErr   error
}

func (s *flakyStore) List(ctx context.Context, prefix string) ([]services.StoredObject, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemoryStore.List(ctx, prefix)
}

func (s *flakyStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (services.StoredObject, error) {
	if s.putErr != nil {
		return services.StoredObject{}, s.putErr
	}
	return s.MemoryStore.Put(ctx, key, body, size, contentType)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryStore.Delete(ctx, key)
}

func (s *flakyStore) Copy(ctx context.Context, srcKey, dstKey string) (services.StoredObject, error) {
	if s.copyErr != nil {
		return services.StoredObject{}, s.copyErr
	}
	return s.MemoryStore.Copy(ctx, srcKey, dstKey)
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: services.NewMemoryStore()}
}

func newFileService(store services.ObjectStore) *services.FileService {
	return services.NewFileService(store, services.FileServiceOptions{
		Prefix: "uploads/",
		URLs:   services.NewPublicURLs("https://photos.s3.eu-west-1.amazonaws.com"),
		Retry:  services.RetryPolicy{Attempts: 2},
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return fixedNow },
		Sleep:  func(context.Context, time.Duration) error { return nil },
	})
}

func seed(t *testing.T, store services.ObjectStore, keys ...string) {
	t.Helper()
	for _, key := range keys {
		_, err := store.Put(context.Background(), key, strings.NewReader("data"), 4, "application/octet-stream")
		require.NoError(t, err)
	}
}

func htmxForm(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("HX-Request", "true")
	return req
}

func multipartUpload(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

package http

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-backend/internal/attachments/domain"
	"github.com/taskdeck/taskdeck-backend/internal/auth"
	authdomain "github.com/taskdeck/taskdeck-backend/internal/auth/domain"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

type fakeService struct {
	Service
	got     domain.Upload
	content string
	listed  []string
	err     error
}

func (f *fakeService) List(_ context.Context, _, _, taskID string) ([]domain.Attachment, error) {
	f.listed = append(f.listed, taskID)
	return []domain.Attachment{}, f.err
}

func (f *fakeService) Upload(_ context.Context, _, _ string, up domain.Upload) (*domain.Attachment, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(up.Body)
	f.got = up
	f.content = string(data)
	return &domain.Attachment{ID: "a1", FileName: up.FileName, SizeBytes: int64(len(data))}, nil
}

func (f *fakeService) Open(context.Context, string, string) (*domain.Attachment, io.ReadCloser, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	a := &domain.Attachment{ID: "a1", FileName: "report q1.pdf", ContentType: "application/pdf", SizeBytes: 3, Checksum: "abc"}
	return a, io.NopCloser(strings.NewReader("pdf")), nil
}

func newRouter(svc Service, maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		auth.SetIdentity(c, &authdomain.Identity{UserID: "alice"})
		c.Next()
	})
	New(svc, maxBytes).Register(api.Group("/projects"), api.Group("/attachments"))
	return r
}

func multipartBody(t *testing.T, fileName, content, taskID string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if taskID != "" {
		require.NoError(t, mw.WriteField("task_id", taskID))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	svc := &fakeService{}
	body, ct := multipartBody(t, "notes.txt", "hello", "t1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/prj-1/attachments", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	newRouter(svc, 1024).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "hello", svc.content)
	assert.Equal(t, "t1", svc.got.TaskID)
	assert.Equal(t, "notes.txt", svc.got.FileName)
}

func TestUpload_TooLarge(t *testing.T) {
	body, ct := multipartBody(t, "big.bin", strings.Repeat("x", 64), "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/prj-1/attachments", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	newRouter(&fakeService{}, 10).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUpload_MissingFile(t *testing.T) {
	body, ct := multipartBody(t, "", "", "t1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/prj-1/attachments", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	newRouter(&fakeService{}, 1024).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownload(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/attachments/a1/download", nil)
	w := httptest.NewRecorder()
	newRouter(&fakeService{}, 1024).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pdf", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report q1.pdf"`, w.Header().Get("Content-Disposition"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/attachments/a1/download", nil)
	w = httptest.NewRecorder()
	newRouter(&fakeService{err: projectdomain.ErrNotFound}, 1024).ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestList_TaskFilter(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, 1024)

	taskID := "0f8fad5b-d9cb-469f-a165-70867728950e"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/projects/prj-1/attachments?task_id="+taskID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{taskID}, svc.listed)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/projects/prj-1/attachments?task_id=t1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, svc.listed, 1, "malformed task ids never reach the service")
}

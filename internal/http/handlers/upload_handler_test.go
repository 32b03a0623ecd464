package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/quizzo-backend/internal/dto"
	"github.com/ignatzorin/quizzo-backend/internal/http/middleware"
	"github.com/ignatzorin/quizzo-backend/internal/http/response"
	"github.com/ignatzorin/quizzo-backend/internal/storage"
)

type fakeObjectStore struct {
	obj  storage.Object
	body []byte
	err  error
}

func (f *fakeObjectStore) Put(ctx context.Context, obj storage.Object) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.obj = obj
	f.body, _ = io.ReadAll(obj.Body)
	return "https://cdn.example.com/" + obj.Key, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// hugePNG - валидный заголовок PNG 20000x20000 весом в несколько десятков байт.
func hugePNG() []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], 20000)
	binary.BigEndian.PutUint32(ihdr[4:], 20000)
	ihdr[8] = 8

	chunk := append([]byte("IHDR"), ihdr...)
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/upload-school-id", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newUploadRouter(store storage.ObjectStore, maxMB int64) *gin.Engine {
	h := NewUploadHandler(store, maxMB)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.Use(middleware.ErrorHandler(false))
	r.POST("/api/auth/upload-school-id", h.UploadSchoolID)
	return r
}

func TestUploadHandler_UploadSchoolID(t *testing.T) {
	store := &fakeObjectStore{}
	w := httptest.NewRecorder()
	newUploadRouter(store, 5).ServeHTTP(w, multipartRequest(t, SchoolIDField, "card.PNG", pngBytes(t)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[dto.UploadResponse](t, w)
	assert.True(t, body.Success)
	assert.True(t, strings.HasPrefix(body.ImageID, "school-ids/1714564800000-"))
	assert.True(t, strings.HasSuffix(body.ImageID, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+body.ImageID, body.ImageURL)

	assert.Equal(t, "image/png", store.obj.ContentType)
	assert.Equal(t, "card.PNG", store.obj.Metadata["originalName"])
	assert.Equal(t, "2024-05-01T12:00:00Z", store.obj.Metadata["uploadedAt"])
	assert.Equal(t, int64(len(store.body)), store.obj.Size)
}

func TestUploadHandler_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		data     []byte
		wantMsg  string
	}{
		{"missing field", "file", "card.png", []byte("x"), "No image file provided"},
		{"bad extension", SchoolIDField, "card.gif", []byte("GIF89a"), "Only JPG, PNG and WebP images are allowed"},
		{"not an image", SchoolIDField, "card.png", []byte("definitely not an image"), "Unable to determine file type. Only images are allowed"},
		{"extension mismatch", SchoolIDField, "card.jpg", nil, "File extension (.jpg) does not match its content (.png)"},
		{"too large", SchoolIDField, "card.png", bytes.Repeat([]byte{0}, 1<<20+1), "Image size must be less than 1MB"},
		{"huge dimensions", SchoolIDField, "card.png", hugePNG(), "Image dimensions must not exceed 8000x8000 pixels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if data == nil {
				data = pngBytes(t)
			}
			store := &fakeObjectStore{}
			w := httptest.NewRecorder()
			newUploadRouter(store, 1).ServeHTTP(w, multipartRequest(t, tt.field, tt.filename, data))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantMsg, decode[response.ErrorBody](t, w).Message)
			assert.Empty(t, store.obj.Key)
		})
	}
}

func TestUploadHandler_RejectsOversizedBodyBeforeParsing(t *testing.T) {
	store := &fakeObjectStore{}
	w := httptest.NewRecorder()
	data := bytes.Repeat([]byte{0}, 3<<20)
	newUploadRouter(store, 1).ServeHTTP(w, multipartRequest(t, SchoolIDField, "card.png", data))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[response.ErrorBody](t, w).Code)
	assert.Empty(t, store.obj.Key)
}

func TestUploadHandler_StoreFailure(t *testing.T) {
	store := &fakeObjectStore{err: errors.New("bucket unavailable")}
	w := httptest.NewRecorder()
	newUploadRouter(store, 5).ServeHTTP(w, multipartRequest(t, SchoolIDField, "card.png", pngBytes(t)))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[response.ErrorBody](t, w)
	assert.Equal(t, "UPLOAD_FAILED", body.Code)
	assert.Equal(t, "Failed to upload image", body.Message)
}

type fakeDB struct {
	err   error
	stats sql.DBStats
}

func (f *fakeDB) PingContext(ctx context.Context) error { return f.err }
func (f *fakeDB) Stats() sql.DBStats                    { return f.stats }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		db         *fakeDB
		wantCode   int
		wantStatus string
	}{
		{"healthy", &fakeDB{stats: sql.DBStats{MaxOpenConnections: 25, OpenConnections: 3}}, http.StatusOK, "healthy"},
		{"database down", &fakeDB{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler(tt.db, nil).Health)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			body := decode[HealthResponse](t, w)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.NotContains(t, body.Checks, "redis")
		})
	}
}

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/quizzo-backend/internal/dto"
	"github.com/ignatzorin/quizzo-backend/internal/http/response"
	"github.com/ignatzorin/quizzo-backend/internal/logger"
	"github.com/ignatzorin/quizzo-backend/internal/pkg/apperror"
	"github.com/ignatzorin/quizzo-backend/internal/storage"
)

// SchoolIDField - имя multipart поля с фотографией студенческого.
const SchoolIDField = "schoolId"

const multipartOverhead = 1 << 20

// Разрешённые типы файлов для загрузки
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Разрешённые расширения файлов
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadHandler принимает фотографию студенческого и кладёт её в объектное хранилище.
type UploadHandler struct {
	store    storage.ObjectStore
	maxBytes int64
	now      func() time.Time
}

// NewUploadHandler создаёт хэндлер с лимитом размера файла в мегабайтах.
func NewUploadHandler(store storage.ObjectStore, maxUploadMB int64) *UploadHandler {
	return &UploadHandler{
		store:    store,
		maxBytes: maxUploadMB << 20,
		now:      time.Now,
	}
}

// UploadSchoolID обрабатывает POST /auth/upload-school-id.
func (h *UploadHandler) UploadSchoolID(c *gin.Context) {
	// Запас в 1MB под заголовки multipart и прочие поля формы.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	file, err := c.FormFile(SchoolIDField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(h.sizeError())
			return
		}
		_ = c.Error(apperror.Validation("No image file provided"))
		return
	}

	if file.Size == 0 {
		_ = c.Error(apperror.Validation("Image file is empty"))
		return
	}
	if file.Size > h.maxBytes {
		_ = c.Error(h.sizeError())
		return
	}

	// Валидация расширения файла
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		_ = c.Error(apperror.Validation("Only JPG, PNG and WebP images are allowed"))
		return
	}

	src, err := file.Open()
	if err != nil {
		_ = c.Error(apperror.Wrap(err, apperror.ErrCodeUploadFailed, "Failed to read uploaded file"))
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.maxBytes+1))
	if err != nil {
		_ = c.Error(apperror.Wrap(err, apperror.ErrCodeUploadFailed, "Failed to read uploaded file"))
		return
	}
	if int64(len(data)) > h.maxBytes {
		_ = c.Error(h.sizeError())
		return
	}

	contentType, err := sniffImage(data, ext)
	if err != nil {
		_ = c.Error(err)
		return
	}

	data, err = storage.NormalizeImage(data, contentType)
	if errors.Is(err, storage.ErrImageTooLarge) {
		_ = c.Error(apperror.Validation(fmt.Sprintf("Image dimensions must not exceed %dx%d pixels", storage.MaxDecodeSide, storage.MaxDecodeSide)))
		return
	}
	if err != nil {
		_ = c.Error(apperror.Wrap(err, apperror.ErrCodeBadRequest, "Image file is corrupted"))
		return
	}

	now := h.now()
	key, err := storage.NewObjectKey(storage.SchoolIDPrefix, now, ext)
	if err != nil {
		_ = c.Error(err)
		return
	}

	url, err := h.store.Put(c.Request.Context(), storage.Object{
		Key:         key,
		ContentType: contentType,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
		Metadata: map[string]string{
			"originalName": filepath.Base(file.Filename),
			"uploadedAt":   now.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		_ = c.Error(apperror.Wrap(err, apperror.ErrCodeUploadFailed, "Failed to upload image"))
		return
	}

	logger.L().WithFields(logrus.Fields{
		"key":  key,
		"size": len(data),
	}).Info("School ID uploaded")

	response.OK(c, dto.UploadResponse{
		Success:  true,
		ImageURL: url,
		ImageID:  key,
		Message:  "School ID uploaded successfully",
	})
}

func (h *UploadHandler) sizeError() error {
	return apperror.Validation(fmt.Sprintf("Image size must be less than %dMB", h.maxBytes>>20))
}

// sniffImage определяет реальный тип файла по магическим байтам и сверяет его с расширением.
func sniffImage(data []byte, ext string) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", apperror.Validation("Unable to determine file type. Only images are allowed")
	}

	contentType := kind.MIME.Value
	if !allowedMimeTypes[contentType] {
		return "", apperror.Validation(fmt.Sprintf("Unsupported file type (%s). Only JPG, PNG and WebP images are allowed", contentType))
	}

	// .jpg и .jpeg - это одно и то же
	expected := "." + kind.Extension
	if ext != expected && !(ext == ".jpeg" && expected == ".jpg") {
		return "", apperror.Validation(fmt.Sprintf("File extension (%s) does not match its content (%s)", ext, expected))
	}

	return contentType, nil
}

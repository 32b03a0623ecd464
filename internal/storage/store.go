package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// SchoolIDPrefix - каталог в бакете для фотографий студенческих.
const SchoolIDPrefix = "school-ids"

// Object описывает загружаемый файл.
type Object struct {
	Key         string
	ContentType string
	Body        io.Reader
	Size        int64
	Metadata    map[string]string
}

// ObjectStore сохраняет объект и возвращает его публичный URL.
type ObjectStore interface {
	Put(ctx context.Context, obj Object) (string, error)
}

// NewObjectKey строит ключ вида <prefix>/<unix-ms>-<16 hex>.<ext>.
func NewObjectKey(prefix string, now time.Time, ext string) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("storage: генерация ключа: %w", err)
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	return fmt.Sprintf("%s/%d-%s.%s", prefix, now.UnixMilli(), hex.EncodeToString(buf), ext), nil
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// MaxImageSide - сторона, в которую вписываются большие фотографии.
const MaxImageSide = 2048

// Предел размеров до декодирования: маленький сжатый PNG может раскрыться в гигабайты пикселей.
const (
	MaxDecodeSide   = 8000
	MaxDecodePixels = 40_000_000
)

var ErrImageTooLarge = errors.New("storage: изображение превышает допустимые размеры")

// NormalizeImage поворачивает JPEG/PNG по EXIF и уменьшает изображения больше MaxImageSide.
// Остальные форматы возвращаются без изменений.
func NormalizeImage(data []byte, mime string) ([]byte, error) {
	var format imaging.Format
	switch mime {
	case "image/jpeg":
		format = imaging.JPEG
	case "image/png":
		format = imaging.PNG
	default:
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось прочитать заголовок изображения: %w", err)
	}
	if cfg.Width > MaxDecodeSide || cfg.Height > MaxDecodeSide || cfg.Width*cfg.Height > MaxDecodePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось декодировать изображение: %w", err)
	}

	img = fit(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("storage: не удалось закодировать изображение: %w", err)
	}
	return buf.Bytes(), nil
}

func fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= MaxImageSide && b.Dy() <= MaxImageSide {
		return img
	}
	return imaging.Fit(img, MaxImageSide, MaxImageSide, imaging.Lanczos)
}

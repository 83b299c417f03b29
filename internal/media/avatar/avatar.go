// Package avatar turns an uploaded JPEG or PNG into the stored square PNG.
package avatar

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	"concertlog/api/internal/media/sniffer"
)

var ErrUnsupportedImage = errors.New("unsupported image")

// DefaultMaxPixels applies when Normalize is called without a pixel limit.
const DefaultMaxPixels = 25_000_000

// Normalize decodes data, center-crops it to a square, scales it to
// size x size with Catmull-Rom and encodes the result as PNG. Images with
// more than maxPixels pixels are rejected from their header alone.
func Normalize(data []byte, size, maxPixels int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("avatar size %d: %w", size, ErrUnsupportedImage)
	}

	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	img, err := decode(data, maxPixels)
	if err != nil {
		return nil, err
	}

	src := coverRect(img.Bounds())
	if src.Empty() {
		return nil, fmt.Errorf("empty image: %w", ErrUnsupportedImage)
	}

	bitmap := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(bitmap, bitmap.Bounds(), img, src, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, bitmap); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, maxPixels int) (image.Image, error) {
	kind, err := sniffer.DetectHead(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	decodeConfig, decodeImage := png.DecodeConfig, png.Decode
	if kind.Type == sniffer.TypeJPEG {
		decodeConfig, decodeImage = jpeg.DecodeConfig, jpeg.Decode
	}

	cfg, err := decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s header: %v", ErrUnsupportedImage, kind.Type, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedImage, cfg.Width, cfg.Height, maxPixels)
	}

	img, err := decodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnsupportedImage, kind.Type, err)
	}
	return img, nil
}

// coverRect is the largest centered square inside b.
func coverRect(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	side := min(w, h)
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

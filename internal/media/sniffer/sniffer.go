// Package sniffer identifies the avatar formats accepted on upload.
package sniffer

import (
	"bytes"
	"errors"
	"path/filepath"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
)

var ErrUnknownType = errors.New("unknown media type")

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// allowedExtensions are matched case-sensitively against the upload filename.
var allowedExtensions = map[string]MediaType{
	".jpg":  TypeJPEG,
	".jpeg": TypeJPEG,
	".png":  TypePNG,
}

type Result struct {
	Type MediaType
	MIME string
}

func DetectHead(head []byte) (Result, error) {
	if isJPEG(head) {
		return Result{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	}
	if isPNG(head) {
		return Result{Type: TypePNG, MIME: "image/png"}, nil
	}
	return Result{}, ErrUnknownType
}

// AllowedFilename reports whether name ends in .jpg, .jpeg or .png.
func AllowedFilename(name string) bool {
	_, ok := allowedExtensions[filepath.Ext(name)]
	return ok
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

// Package qrcode renders subscription links as PNG QR codes for clients
// that import a profile by scanning.
package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrEncode       = errors.New("failed to generate QR code")
)

const defaultSize = 256

// Encoder produces data URIs; it satisfies usecase.LinkEncoder.
type Encoder struct {
	size  int
	level skipqrcode.RecoveryLevel
}

func NewEncoder(size int) *Encoder {
	if size <= 0 {
		size = defaultSize
	}
	return &Encoder{size: size, level: skipqrcode.Medium}
}

// PNG returns the raw image.
func (e *Encoder) PNG(content string) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	png, err := skipqrcode.Encode(content, e.level, e.size)
	if err != nil {
		return nil, errors.Join(ErrEncode, err)
	}
	return png, nil
}

// GenerateBase64Image returns "data:image/png;base64,...".
func (e *Encoder) GenerateBase64Image(content string) (string, error) {
	png, err := e.PNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

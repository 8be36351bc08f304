// Package qrcodes turns the stable public page URL into a printable PNG.
package qrcodes

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	// DefaultSizePx is used when no size is configured.
	DefaultSizePx = 512
	// maxURLLen caps the payload: QR version 40 with medium correction holds
	// ~2300 bytes, and page URLs are a fraction of that.
	maxURLLen = 2048
)

var (
	ErrEmptyURL   = errors.New("qr: empty url")
	ErrURLTooLong = errors.New("qr: url too long")
)

// Encode renders url as a PNG of size x size pixels. Pure function: same
// input, same bytes.
func Encode(url string, size int) ([]byte, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	if len(url) > maxURLLen {
		return nil, ErrURLTooLong
	}
	if size <= 0 {
		size = DefaultSizePx
	}
	return qrcode.Encode(url, qrcode.Medium, size)
}

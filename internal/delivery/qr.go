package delivery

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// RenderQR encodes content as a square PNG QR code of size pixels
func RenderQR(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}

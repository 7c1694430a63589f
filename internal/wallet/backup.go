package wallet

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/Klingon-tech/cisp-wallet/pkg/types"
)

// DefaultQRSize is the default PNG edge length in pixels.
const DefaultQRSize = 256

// BackupQR renders m as a PNG QR code for offline backup. The image carries
// the secret in the clear and must be handled like the mnemonic itself.
func BackupQR(m Mnemonic, size int) ([]byte, error) {
	if err := ValidateMnemonic(string(m)); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	qr, err := qrcode.New(string(NormalizeMnemonic(string(m))), qrcode.High)
	if err != nil {
		return nil, fmt.Errorf("create QR code: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("generate PNG: %w", err)
	}
	return png, nil
}

// AddressQR renders addr as a base64 encoded PNG QR code.
func AddressQR(addr types.Address, size int) (string, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	qr, err := qrcode.New(addr.String(), qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("create QR code: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return "", fmt.Errorf("generate PNG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

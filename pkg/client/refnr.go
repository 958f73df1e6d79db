package client

import (
	"encoding/base64"
	"fmt"
)

// EncodeRefnr converts a listing reference number into the form the
// details endpoint expects: standard base64 with padding.
func EncodeRefnr(refnr string) string {
	return base64.StdEncoding.EncodeToString([]byte(refnr))
}

// DecodeRefnr reverses EncodeRefnr.
func DecodeRefnr(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode refnr: %w", err)
	}
	return string(raw), nil
}

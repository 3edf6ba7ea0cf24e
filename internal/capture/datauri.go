// Package capture provides the backends that take a snapshot of the visible
// browser tab and encode it as a data URI.
package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stockscan/cli/internal/scan"
)

// ErrEmptyImage is returned when a backend produced no bytes.
var ErrEmptyImage = errors.New("capture produced an empty image")

// EncodeDataURI sniffs the image type of data and returns it as a base64 data URI.
func EncodeDataURI(data []byte) (scan.Snapshot, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("captured data is not an image (detected %s)", mime)
	}
	return scan.Snapshot("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}

// DecodeDataURI splits a base64 data URI into its MIME type and raw bytes.
func DecodeDataURI(s scan.Snapshot) (string, []byte, error) {
	rest, ok := strings.CutPrefix(string(s), "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return mime, data, nil
}

package capture

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/stockscan/cli/internal/scan"
)

const maxImageBytes = 32 << 20

// FileCapturer reads an existing screenshot instead of capturing one.
// Path "-" reads from Stdin.
type FileCapturer struct {
	Path  string
	Stdin io.Reader
}

var _ scan.Capturer = (*FileCapturer)(nil)

func (f *FileCapturer) Capture(ctx context.Context) (scan.Snapshot, error) {
	if f.Path == "" {
		return "", fmt.Errorf("no image file given")
	}

	var r io.Reader
	if f.Path == "-" {
		r = f.Stdin
		if r == nil {
			r = os.Stdin
		}
	} else {
		file, err := os.Open(f.Path)
		if err != nil {
			return "", fmt.Errorf("failed to open image: %w", err)
		}
		defer file.Close()
		r = file
	}

	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image is larger than %d bytes", maxImageBytes)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return EncodeDataURI(data)
}

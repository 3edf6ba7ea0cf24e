package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/kernel/kernel-go-sdk"
	"github.com/kernel/kernel-go-sdk/option"
	"github.com/stockscan/cli/internal/scan"
)

// ComputerService defines the subset of the Kernel SDK computer client that we use.
type ComputerService interface {
	CaptureScreenshot(ctx context.Context, id string, body kernel.BrowserComputerCaptureScreenshotParams, opts ...option.RequestOption) (*http.Response, error)
}

// KernelCapturer captures the screen of a Kernel cloud browser session.
type KernelCapturer struct {
	computer  ComputerService
	browserID string
}

var _ scan.Capturer = (*KernelCapturer)(nil)

// NewKernelCapturer builds a capturer backed by the Kernel API.
func NewKernelCapturer(apiKey, browserID string, opts ...option.RequestOption) *KernelCapturer {
	if apiKey != "" {
		opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	}
	client := kernel.NewClient(opts...)
	svc := client.Browsers.Computer
	return &KernelCapturer{computer: &svc, browserID: browserID}
}

// NewKernelCapturerWithService is used when the caller already holds a computer client.
func NewKernelCapturerWithService(computer ComputerService, browserID string) *KernelCapturer {
	return &KernelCapturer{computer: computer, browserID: browserID}
}

func (k *KernelCapturer) Capture(ctx context.Context) (scan.Snapshot, error) {
	if k.browserID == "" {
		return "", fmt.Errorf("a Kernel browser ID is required")
	}

	resp, err := k.computer.CaptureScreenshot(ctx, k.browserID, kernel.BrowserComputerCaptureScreenshotParams{})
	if err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read screenshot: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("screenshot is larger than %d bytes", maxImageBytes)
	}

	return EncodeDataURI(data)
}

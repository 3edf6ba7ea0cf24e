package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stockscan/cli/internal/scan"
)

var outBuf bytes.Buffer

// setupStdoutCapture routes pterm output into outBuf for the test.
func setupStdoutCapture(t *testing.T) {
	t.Helper()
	outBuf.Reset()
	pterm.SetDefaultOutput(&outBuf)
	pterm.DisableStyling()

	// The prefix printers keep the writer they were created with.
	printers := []*pterm.PrefixPrinter{&pterm.Info, &pterm.Success, &pterm.Error, &pterm.Warning}
	saved := make([]io.Writer, len(printers))
	for i, p := range printers {
		saved[i] = p.Writer
		p.Writer = &outBuf
	}
	savedTable := pterm.DefaultTable.Writer
	pterm.DefaultTable.Writer = &outBuf

	t.Cleanup(func() {
		for i, p := range printers {
			p.Writer = saved[i]
		}
		pterm.DefaultTable.Writer = savedTable
		pterm.SetDefaultOutput(os.Stdout)
		pterm.EnableStyling()
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type FakeCapturer struct {
	CaptureFunc func(ctx context.Context) (scan.Snapshot, error)
}

func (f *FakeCapturer) Capture(ctx context.Context) (scan.Snapshot, error) {
	if f.CaptureFunc != nil {
		return f.CaptureFunc(ctx)
	}
	return "data:image/png;base64,iVBORw0KGgo=", nil
}

type FakeSubmitter struct {
	SubmitFunc func(ctx context.Context, req scan.AnalysisRequest) (*scan.AnalysisResponse, error)
}

func (f *FakeSubmitter) Submit(ctx context.Context, req scan.AnalysisRequest) (*scan.AnalysisResponse, error) {
	if f.SubmitFunc != nil {
		return f.SubmitFunc(ctx, req)
	}
	return &scan.AnalysisResponse{Status: scan.StatusSuccess}, nil
}

package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Status texts shown for each phase.
const (
	InProgressText = "Capturing tab and sending to analysis..."
	SuccessText    = "Analysis succeeded! Results were stored by the analysis service."

	captureFailedPrefix  = "Screenshot capture failed: "
	networkFailedPrefix  = "Network request error: "
	serverFailedPrefix   = "AI analysis failed: "
	protocolFailedPrefix = "Unexpected response from analysis service: "
)

// Config wires a Handler to its collaborators.
type Config struct {
	Capturer  Capturer
	Submitter Submitter
	Sink      StatusSink
	Logger    *slog.Logger
}

// Handler runs the capture-and-submit workflow. A Handler accepts one
// invocation at a time; overlapping triggers get ErrBusy.
type Handler struct {
	capturer  Capturer
	submitter Submitter
	sink      StatusSink
	logger    *slog.Logger

	busy atomic.Bool
}

// Outcome is the terminal result of one invocation.
type Outcome struct {
	Status   StatusMessage
	Response *AnalysisResponse
	Err      error
}

// NewHandler creates a Handler. A nil Sink discards status updates.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sink == nil {
		cfg.Sink = StatusSinkFunc(func(StatusMessage) {})
	}
	return &Handler{
		capturer:  cfg.Capturer,
		submitter: cfg.Submitter,
		sink:      cfg.Sink,
		logger:    cfg.Logger.With("component", "scan"),
	}
}

// Trigger captures the visible tab, submits it and renders the result.
//
// Exactly two statuses are rendered per accepted invocation: in-progress,
// then success or failure. Errors never escape as panics; they are reported
// in Outcome.Err and in the failure status. If another invocation is still
// running, Trigger renders nothing and returns an Outcome with ErrBusy.
func (h *Handler) Trigger(ctx context.Context) Outcome {
	if !h.busy.CompareAndSwap(false, true) {
		h.logger.Warn("scan: trigger ignored, previous scan still running")
		return Outcome{Err: ErrBusy}
	}
	defer h.busy.Store(false)

	h.render(StatusMessage{Phase: PhaseInProgress, Text: InProgressText})

	resp, err := h.run(ctx)
	out := h.interpret(resp, err)

	h.render(out.Status)
	return out
}

func (h *Handler) run(ctx context.Context) (resp *AnalysisResponse, err error) {
	stage := KindCapture
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("scan: recovered panic", "stage", stage, "panic", r)
			resp, err = nil, &Error{Kind: stage, Message: fmt.Sprintf("unexpected failure: %v", r)}
		}
	}()

	snap, err := h.capturer.Capture(ctx)
	if err != nil {
		return nil, withKind(KindCapture, err)
	}
	if snap == "" {
		return nil, CaptureError(errors.New("no image data returned"))
	}
	h.logger.Debug("scan: captured snapshot", "data_uri_len", len(snap))

	stage = KindNetwork
	resp, err = h.submitter.Submit(ctx, AnalysisRequest{Image: snap})
	if err != nil {
		return nil, withKind(KindNetwork, err)
	}
	if resp == nil {
		return nil, ProtocolError("empty response", nil)
	}
	return resp, nil
}

func (h *Handler) interpret(resp *AnalysisResponse, err error) Outcome {
	if err != nil {
		h.logger.Info("scan: failed", "kind", KindOf(err), "error", err)
		return Outcome{
			Status: StatusMessage{Phase: PhaseFailure, Text: FailureText(err)},
			Err:    err,
		}
	}

	if !resp.Succeeded() {
		serr := ServerError(resp.Message)
		h.logger.Info("scan: analysis rejected", "status", resp.Status, "message", resp.Message)
		return Outcome{
			Status:   StatusMessage{Phase: PhaseFailure, Text: FailureText(serr)},
			Response: resp,
			Err:      serr,
		}
	}

	// The result is opaque; it is only logged for diagnostics.
	h.logger.Debug("scan: analysis result", "result", resp.Result)
	return Outcome{
		Status:   StatusMessage{Phase: PhaseSuccess, Text: SuccessText},
		Response: resp,
	}
}

func (h *Handler) render(msg StatusMessage) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("scan: status sink panicked", "phase", msg.Phase, "panic", r)
		}
	}()
	h.sink.Render(msg)
}

// FailureText builds the failure status for err.
func FailureText(err error) string {
	var se *Error
	if !errors.As(err, &se) {
		return networkFailedPrefix + err.Error()
	}
	switch se.Kind {
	case KindCapture:
		return captureFailedPrefix + describe(se)
	case KindServer:
		if se.Message == "" {
			return serverFailedPrefix + "no message from server"
		}
		return serverFailedPrefix + se.Message
	case KindProtocol:
		return protocolFailedPrefix + describe(se)
	default:
		return networkFailedPrefix + describe(se)
	}
}

func describe(se *Error) string {
	switch {
	case se.Message != "" && se.Err != nil:
		return se.Message + ": " + se.Err.Error()
	case se.Err != nil:
		return se.Err.Error()
	default:
		return se.Message
	}
}

func withKind(kind Kind, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

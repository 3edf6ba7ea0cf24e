// Package scan implements the capture-and-submit workflow: take a snapshot of
// the visible browser tab, send it to the analysis endpoint and report the
// outcome through a status sink.
package scan

import (
	"context"
	"encoding/json"
)

// Snapshot is a base64 image data URI, e.g. "data:image/png;base64,iVBOR...".
type Snapshot string

// AnalysisRequest is the body posted to the analysis endpoint.
type AnalysisRequest struct {
	Image Snapshot `json:"image"`
}

// AnalysisResponse is the decoded reply from the analysis endpoint.
type AnalysisResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	// Count is reported by services that return the number of stored records.
	Count *int64 `json:"count,omitempty"`
}

// StatusSuccess is the only status value treated as a successful analysis.
const StatusSuccess = "success"

// Succeeded reports whether the service accepted and analyzed the snapshot.
func (r *AnalysisResponse) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// Phase is the stage of a single invocation shown to the user.
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseSuccess    Phase = "success"
	PhaseFailure    Phase = "failure"
)

// Terminal reports whether no further status follows this phase.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseFailure
}

// StatusMessage is what the user sees for the current phase.
type StatusMessage struct {
	Phase Phase
	Text  string
}

// Capturer produces a snapshot of the currently visible tab.
type Capturer interface {
	Capture(ctx context.Context) (Snapshot, error)
}

// Submitter sends a snapshot to the analysis endpoint.
type Submitter interface {
	Submit(ctx context.Context, req AnalysisRequest) (*AnalysisResponse, error)
}

// StatusSink renders status text. It is the only user-visible state.
type StatusSink interface {
	Render(msg StatusMessage)
}

// StatusSinkFunc adapts a function to StatusSink.
type StatusSinkFunc func(msg StatusMessage)

// Render calls f(msg).
func (f StatusSinkFunc) Render(msg StatusMessage) { f(msg) }

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"taskgate-hq/taskgate/pkg/admission"
)

// Submitter is the interface the task handler needs from the admission
// pipeline.
type Submitter interface {
	Submit(ctx context.Context, user string) (admission.Outcome, error)
}

// TaskHandler handles task submission requests.
type TaskHandler struct {
	submitter Submitter
}

// NewTaskHandler creates a new task submission handler.
func NewTaskHandler(submitter Submitter) *TaskHandler {
	return &TaskHandler{submitter: submitter}
}

// ServeHTTP implements http.Handler for POST /api/v1/tasks.
//
// Status codes:
//   - 200: the task executed within the rate limit
//   - 429: the user is over a limit; the task was queued for later
//   - 400: the request body is malformed or names no user
//   - 503: the shared store or the executor is unavailable
func (h *TaskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, TaskResponse{
			Status:  string(admission.OutcomeRejected),
			Message: "Invalid request body.",
		})
		return
	}

	outcome, err := h.submitter.Submit(r.Context(), req.UserID)

	switch outcome {
	case admission.OutcomeCompleted:
		writeJSON(w, http.StatusOK, TaskResponse{
			Status:  string(outcome),
			Message: "Task completed.",
		})

	case admission.OutcomeDeferred:
		writeJSON(w, http.StatusTooManyRequests, TaskResponse{
			Status:  string(outcome),
			Message: "Rate limit exceeded. Task queued.",
		})

	case admission.OutcomeRejected:
		msg := "Invalid request."
		if errors.Is(err, admission.ErrMissingUser) {
			msg = "Missing user_id."
		}
		writeJSON(w, http.StatusBadRequest, TaskResponse{
			Status:  string(outcome),
			Message: msg,
		})

	default:
		writeJSON(w, http.StatusServiceUnavailable, TaskResponse{
			Status:  string(admission.OutcomeUnavailable),
			Message: "Service temporarily unavailable. Please retry.",
		})
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

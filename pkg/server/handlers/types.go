package handlers

// TaskRequest is the body of a task submission.
type TaskRequest struct {
	// UserID identifies the user the task is admitted for. Required.
	UserID string `json:"user_id"`
}

// TaskResponse is the body of a task submission response.
type TaskResponse struct {
	// Status is the admission outcome: "completed", "deferred",
	// "rejected" or "unavailable".
	Status string `json:"status"`

	// Message is a human readable description of the outcome.
	Message string `json:"message,omitempty"`
}

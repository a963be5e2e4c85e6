// Package handlers provides the HTTP handlers for the task admission API.
//
// Endpoints:
//
//   - POST /api/v1/tasks: submit a task for a user. Returns 200 when the
//     task ran within the rate limit, 429 when it was queued, 400 for an
//     invalid request and 503 when the store is down.
//   - GET /health: liveness probe, always 200 while the process serves.
//   - GET /ready: readiness probe, 200 when the shared store answers.
package handlers

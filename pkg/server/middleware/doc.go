// Package middleware provides HTTP middleware for the task admission API.
//
// The middleware chain, outermost first:
//
//   - RecoveryMiddleware: converts handler panics into 500 responses
//   - LoggingMiddleware: structured request/response logging
//   - RequestIDMiddleware: per-request correlation IDs
//   - TimeoutMiddleware: per-request deadline
//
// Each middleware follows the standard func(http.Handler) http.Handler
// pattern and composes by wrapping:
//
//	handler = RecoveryMiddleware(
//	    LoggingMiddleware(
//	        RequestIDMiddleware(
//	            TimeoutMiddleware(30 * time.Second)(mux))))
package middleware

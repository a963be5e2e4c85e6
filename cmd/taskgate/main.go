// Taskgate is a per-user task admission service.
//
// It accepts task submissions over HTTP, enforces a two-tier sliding-window
// rate limit per user, queues over-limit tasks in a durable per-user FIFO
// backlog, and drains those backlogs in the background as capacity frees up.
//
// Usage:
//
//	# Start server with default configuration
//	taskgate run
//
//	# Start with custom configuration file
//	taskgate run --config /path/to/config.yaml
//
//	# Validate a configuration file without starting
//	taskgate validate --config /path/to/config.yaml
//
//	# Show version information
//	taskgate version
package main

func main() {
	Execute()
}

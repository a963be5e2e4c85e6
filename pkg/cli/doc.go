// Package cli provides command-line utilities shared by the taskgate
// command: typed CLI errors and signal handling for graceful shutdown.
//
// For shutdown on SIGINT/SIGTERM:
//
//	ctx := cli.SetupSignalHandler()
//	// Use ctx for operations that should be cancelled on shutdown
package cli

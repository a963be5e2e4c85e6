// Package config provides configuration loading, validation, and hot-reload
// for taskgate.
//
// Configuration is read from a YAML file, filled in with defaults, and
// optionally overridden by TASKGATE_* environment variables. The limits
// section can additionally be hot-reloaded via the fsnotify-based Watcher
// when limits.watch is enabled.
//
// # Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides("taskgate.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Validation
//
// Validate collects every violation into a single ValidationError rather
// than stopping at the first, so a misconfigured file reports all of its
// problems at once.
package config

// Package admission implements per-user task admission control.
//
// Every submitted task passes through a two-window sliding rate limit. A
// task under both thresholds executes immediately; a task over either
// threshold is deferred to the user's durable FIFO backlog and a background
// drainer works it off as capacity frees up. Drain runs are per-user,
// lease-deduplicated across processes, and self-terminating: they exist
// only while their queue is non-empty.
package admission

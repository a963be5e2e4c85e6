// Package tasklog provides the task-completion sink.
//
// Completing a task means appending a record to an append-only completion
// log; that is the entire observable effect of the system admitting a task,
// whether it runs immediately or after waiting in the backlog.
//
// The SQLite implementation assigns each completion a uuid so duplicate
// executions (possible under the documented drain race) produce distinct
// rows that readers can reconcile by timestamp rather than corrupting a
// counter.
package tasklog

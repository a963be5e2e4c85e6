// Package retention prunes aged-out admission records.
//
// The rate limiter filters by time range, so an admission timestamp older
// than the longest window never affects a decision again. Without pruning
// those records accumulate forever; this package deletes them on a cron
// schedule.
//
// # Basic Usage
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    MaxAge:        5 * time.Minute,
//	    PruneSchedule: "*/5 * * * *",
//	})
//
//	if err := pruner.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer pruner.Stop()
//
// Pruning can also be triggered manually with Prune. MaxAge must not be
// shorter than the sustained rate-limit window; config validation enforces
// this at load time.
package retention

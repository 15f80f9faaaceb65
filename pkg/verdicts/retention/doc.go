// Package retention prunes old verdict records.
//
// Two rules run in order on every Prune: records audited more than Days ago
// are deleted (Days <= 0 keeps them forever), then, if MaxRecords is set,
// the oldest records beyond that count. With ArchivePath set the doomed
// records are first written to a JSON file in that directory.
//
// Scheduler runs Prune on a cron expression using robfig/cron:
//
//	pruner := retention.NewPruner(store, cfg.Verdicts.Retention, collector, logger)
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
package retention

// Package manager keeps the active decision grid and reloads it.
//
// A Manager wraps a source.Source. Load fetches, parses and installs a new
// policy.Table; if any step fails the previous table stays active and the
// failure is returned as a *LoadError. With policy.strict enabled a grid
// that parsed with quarantined rows is rejected as a *StrictError.
//
// Tables are swapped through an atomic pointer. Callers that need a
// consistent view for the length of an audit should call Current once and
// use the returned table throughout.
//
// # Hot reload
//
// Watch blocks until its context is cancelled. File sources are watched with
// fsnotify on the parent directory, debounced so a burst of writes causes
// one reload. Every other source is polled on policy.poll_interval and may
// answer source.ErrNotModified, which leaves the table untouched.
//
//	mgr, err := manager.New(cfg.Policy, src, collector, logger)
//	if err != nil {
//	    return err
//	}
//	if err := mgr.Load(ctx); err != nil {
//	    return err
//	}
//	go mgr.Watch(ctx)
//
//	table := mgr.Current()
package manager

// Package health provides liveness, readiness and version endpoints.
//
// Checks are registered as critical or optional. A failing critical check,
// such as the decision grid not being loaded yet, makes readiness return
// 503. A failing optional check, such as the spreadsheet sink being
// unreachable, reports "degraded" but keeps serving.
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("policy", manager.Ready)
//	checker.RegisterOptionalCheck("verdicts", health.PingCheck(store))
//	health.Mount(mux, checker, cfg.Telemetry.Health, health.NewVersionInfo(version, commit, date))
package health

// Package netprobe holds error kinds shared across the daemon, per
// spec.md §7's error table. Components report a failure by returning the
// matching sentinel's Error() text rather than an ad hoc message.
package netprobe

import "errors"

var (
	// ErrToolMissing: the capture binary is absent from PATH.
	ErrToolMissing = errors.New("capture tool not found")
	// ErrAlreadyRunning: start requested while a capture process is live.
	ErrAlreadyRunning = errors.New("capture already running")
	// ErrStartupFailed: the child process exited within the startup probe.
	ErrStartupFailed = errors.New("capture process failed to start")
	// ErrBusy: a session-affecting command arrived while the coordinator
	// is in Stopping/Reporting and cannot accept a new start.
	ErrBusy = errors.New("session busy")
	// ErrNotRunning: stop requested while no session is active.
	ErrNotRunning = errors.New("no capture session running")
	// ErrForceKillRequired: graceful terminate exceeded its timeout.
	ErrForceKillRequired = errors.New("capture process required force-kill")
	// ErrReportUnavailable: the external report generator failed or is
	// disabled; the caller should fall back to the deterministic summary.
	ErrReportUnavailable = errors.New("report generator unavailable")
	// ErrRateLimited: an enrichment HTTP call was dropped for pacing.
	ErrRateLimited = errors.New("geolocation call rate limited")
)

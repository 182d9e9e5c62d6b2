// Package session implements the Session Coordinator: the state machine
// from spec.md §4.5, the mutable session-scoped state it owns, and the
// orchestration of capture windows, stop, and report generation.
package session

// States, spec.md §4.5.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateStopping  = "stopping"
	StateReporting = "reporting"
)

// Events, spec.md §4.5's transition table.
const (
	EventStart        = "start"
	EventWindowClosed = "window_closed"
	EventStop         = "stop"
	EventLastLeft     = "last_subscriber_left"
	EventCaptureDown  = "capture_confirmed_stopped"
	EventReportDone   = "report_done"
)

// Package report implements the Report Builder: it assembles cumulative
// session state into a structured payload, hands it to an external text
// generator, and falls back to a deterministic prose summary if that
// generator is unavailable, per spec.md §4.9.
package report

import (
	"time"

	"firestige.xyz/netprobe/internal/metrics"
)

// Payload is the pre-computed statistics handed to the external
// generator, spec.md §4.9.
type Payload struct {
	SessionDuration time.Duration
	Totals          metrics.Totals
}

// Document is the generated report: a prose summary plus the
// per-protocol breakdown it was derived from.
type Document struct {
	Summary    string
	Breakdown  metrics.Totals
	Fallback   bool
}

// Build assembles a Payload from the engine's cumulative state.
func Build(duration time.Duration, totals metrics.Totals) Payload {
	return Payload{SessionDuration: duration, Totals: totals}
}

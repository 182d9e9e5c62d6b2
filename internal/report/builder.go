package report

import (
	"context"
	"log/slog"
	"time"
)

// Builder consumes cumulative session state and produces a report
// Document, falling back to deterministic prose when the external
// generator is unavailable, spec.md §4.9 and §7 (ReportUnavailable).
type Builder struct {
	generator Generator
}

// NewBuilder creates a Builder backed by generator. A nil generator
// always falls back, matching the "GEMINI_API_KEY absent" case from
// spec.md §6.5.
func NewBuilder(generator Generator) *Builder {
	return &Builder{generator: generator}
}

// Build produces the final report document for payload.
func (b *Builder) Build(ctx context.Context, payload Payload) Document {
	if b.generator != nil {
		if summary, err := b.generator.Generate(ctx, payload); err == nil {
			return Document{Summary: summary, Breakdown: payload.Totals}
		} else {
			slog.Warn("report generator unavailable, using fallback", "error", err)
		}
	}
	return Document{Summary: fallbackSummary(payload), Breakdown: payload.Totals, Fallback: true}
}

// BuildWithTimeout bounds the external generator call, matching the
// generator's own report.RequestTimeout config.
func (b *Builder) BuildWithTimeout(payload Payload, timeout time.Duration) Document {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return b.Build(ctx, payload)
}

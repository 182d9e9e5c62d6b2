package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"firestige.xyz/netprobe/internal/metrics"
)

type fakeGenerator struct {
	summary string
	err     error
}

func (f fakeGenerator) Generate(ctx context.Context, payload Payload) (string, error) {
	return f.summary, f.err
}

func TestBuildUsesGeneratorSummaryOnSuccess(t *testing.T) {
	b := NewBuilder(fakeGenerator{summary: "traffic looked normal"})
	doc := b.Build(context.Background(), Payload{Totals: metrics.Totals{TotalPackets: 10}})

	if doc.Summary != "traffic looked normal" {
		t.Errorf("Summary = %q, want the generator's summary", doc.Summary)
	}
	if doc.Fallback {
		t.Error("expected Fallback = false when the generator succeeds")
	}
}

func TestBuildFallsBackWhenGeneratorErrors(t *testing.T) {
	b := NewBuilder(fakeGenerator{err: errors.New("upstream unavailable")})
	payload := Payload{SessionDuration: time.Minute, Totals: metrics.Totals{TotalPackets: 42}}
	doc := b.Build(context.Background(), payload)

	if !doc.Fallback {
		t.Error("expected Fallback = true when the generator errors")
	}
	if doc.Summary == "" {
		t.Error("expected a non-empty deterministic fallback summary")
	}
}

func TestBuildFallsBackWithNilGenerator(t *testing.T) {
	b := NewBuilder(nil)
	payload := Payload{SessionDuration: 30 * time.Second, Totals: metrics.Totals{TotalPackets: 5}}
	doc := b.Build(context.Background(), payload)

	if !doc.Fallback {
		t.Error("expected Fallback = true with a nil generator (GEMINI_API_KEY absent case)")
	}
}

func TestBuildWithTimeoutProducesADocument(t *testing.T) {
	b := NewBuilder(nil)
	doc := b.BuildWithTimeout(Payload{Totals: metrics.Totals{TotalPackets: 1}}, time.Second)
	if !doc.Fallback {
		t.Error("expected Fallback = true for a nil generator")
	}
}

func TestBuildProduceDocumentCarriesBreakdownThrough(t *testing.T) {
	b := NewBuilder(nil)
	totals := metrics.Totals{TotalPackets: 99}
	doc := b.Build(context.Background(), Payload{Totals: totals})
	if doc.Breakdown.TotalPackets != 99 {
		t.Errorf("Breakdown.TotalPackets = %d, want 99", doc.Breakdown.TotalPackets)
	}
}

func TestFallbackSummaryIncludesPacketCountAndDuration(t *testing.T) {
	payload := Build(45*time.Second, metrics.Totals{
		TotalPackets:    120,
		OverallInAvgBps: 5000,
		TCP:             metrics.ProtoTotals{Packets: 80, RetransPct: 1.5},
	})
	summary := fallbackSummary(payload)
	if summary == "" {
		t.Fatal("expected a non-empty summary")
	}
	if !strings.Contains(summary, "120") {
		t.Errorf("summary = %q, want it to mention the packet count", summary)
	}
	if !strings.Contains(summary, "45s") {
		t.Errorf("summary = %q, want it to mention the session duration", summary)
	}
	if !strings.Contains(summary, "TCP") {
		t.Errorf("summary = %q, want a TCP breakdown since TCP.Packets > 0", summary)
	}
}

func TestFallbackSummaryOmitsProtocolLinesWithZeroPackets(t *testing.T) {
	payload := Build(time.Second, metrics.Totals{TotalPackets: 0})
	summary := fallbackSummary(payload)
	if strings.Contains(summary, "RTP carried") {
		t.Errorf("summary = %q, want no RTP line when RTP.Packets == 0", summary)
	}
}

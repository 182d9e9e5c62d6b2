package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPacketsParsedTotalIncrements(t *testing.T) {
	before := testutil.ToFloat64(PacketsParsedTotal)
	PacketsParsedTotal.Inc()
	after := testutil.ToFloat64(PacketsParsedTotal)
	if after != before+1 {
		t.Errorf("PacketsParsedTotal = %f, want %f", after, before+1)
	}
}

func TestSessionStateGaugeVecTracksLabelledState(t *testing.T) {
	SessionState.WithLabelValues("running").Set(1)
	SessionState.WithLabelValues("idle").Set(0)

	if got := testutil.ToFloat64(SessionState.WithLabelValues("running")); got != 1 {
		t.Errorf("SessionState{running} = %f, want 1", got)
	}
	if got := testutil.ToFloat64(SessionState.WithLabelValues("idle")); got != 0 {
		t.Errorf("SessionState{idle} = %f, want 0", got)
	}
}

func TestSubscriberCountGaugeSetAndRead(t *testing.T) {
	SubscriberCount.Set(3)
	if got := testutil.ToFloat64(SubscriberCount); got != 3 {
		t.Errorf("SubscriberCount = %f, want 3", got)
	}
}

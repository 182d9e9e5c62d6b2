package hub

import (
	"net/netip"
	"testing"

	"firestige.xyz/netprobe/internal/geo"
	"firestige.xyz/netprobe/internal/metrics"
	"firestige.xyz/netprobe/internal/model"
)

func TestTopTalkerTuplesEncodesBytesAsString(t *testing.T) {
	talkers := []metrics.TopTalker{
		{Src: netip.MustParseAddr("10.0.0.1"), Dst: netip.MustParseAddr("93.184.216.34"), Packets: 5, Bytes: 4096},
	}
	tuples := topTalkerTuples(talkers)
	if len(tuples) != 1 {
		t.Fatalf("len(tuples) = %d, want 1", len(tuples))
	}
	tuple, ok := tuples[0].([]any)
	if !ok || len(tuple) != 4 {
		t.Fatalf("tuple = %#v, want a 4-element slice", tuples[0])
	}
	if tuple[0] != "10.0.0.1" || tuple[1] != "93.184.216.34" {
		t.Errorf("tuple addrs = (%v, %v), want (10.0.0.1, 93.184.216.34)", tuple[0], tuple[1])
	}
	if tuple[3] != "4096" {
		t.Errorf("tuple[3] = %v (%T), want bytes encoded as the string \"4096\"", tuple[3], tuple[3])
	}
}

func TestSnapshotMessageHandlesNilSnapshot(t *testing.T) {
	msg := snapshotMessage("initial_state", nil, nil)
	if msg.Type != "initial_state" {
		t.Errorf("Type = %q, want initial_state", msg.Type)
	}
	if msg.Metrics == nil {
		t.Fatal("expected a zero-value Metrics block, not nil, when snapshot is nil")
	}
	if msg.NewPackets != nil {
		t.Error("expected no packet history for a nil snapshot")
	}
}

func TestSnapshotMessagePopulatesAllProtocolBlocks(t *testing.T) {
	snap := &metrics.Snapshot{
		Overall: metrics.OverallMetrics{TotalPackets: 10},
		TCP:     metrics.ProtocolMetrics{PacketsPerSecond: 1},
		TopTalkers: []metrics.TopTalker{
			{Src: netip.MustParseAddr("10.0.0.1"), Dst: netip.MustParseAddr("10.0.0.2"), Packets: 1, Bytes: 64},
		},
	}
	geoRecords := []geo.Record{{IP: netip.MustParseAddr("93.184.216.34"), City: "Oakdale"}}

	msg := snapshotMessage("update", snap, geoRecords)
	if msg.Metrics.TotalPackets != 10 {
		t.Errorf("Metrics.TotalPackets = %d, want 10", msg.Metrics.TotalPackets)
	}
	if msg.TCPMetrics.PacketsPerSecond != 1 {
		t.Errorf("TCPMetrics.PacketsPerSecond = %f, want 1", msg.TCPMetrics.PacketsPerSecond)
	}
	if len(msg.TopTalkers) != 1 {
		t.Errorf("len(TopTalkers) = %d, want 1", len(msg.TopTalkers))
	}
	if len(msg.NewGeolocations) != 1 || msg.NewGeolocations[0].City != "Oakdale" {
		t.Errorf("NewGeolocations = %+v, want one record with City=Oakdale", msg.NewGeolocations)
	}
}

func TestOverallMetricsDTOFromConvertsProtocolDistributionKeys(t *testing.T) {
	m := metrics.OverallMetrics{
		ProtocolDistribution: map[model.ProtocolCategory]uint64{model.CategoryTCP: 3},
	}
	dto := overallMetricsDTOFrom(m)
	if dto.ProtocolDistribution["TCP"] != 3 {
		t.Errorf("ProtocolDistribution[TCP] = %d, want 3", dto.ProtocolDistribution["TCP"])
	}
}

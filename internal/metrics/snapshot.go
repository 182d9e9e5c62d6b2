package metrics

import (
	"time"

	"firestige.xyz/netprobe/internal/model"
)

// ProtocolMetrics is the per-protocol record from spec.md §3. TCP-only
// and RTP-only fields are left zero for protocols they don't apply to.
type ProtocolMetrics struct {
	PacketsPerSecond float64

	InThroughputBps  float64
	OutThroughputBps float64
	InThroughputPeak float64
	InThroughputAvg  float64
	OutThroughputPeak float64
	OutThroughputAvg  float64

	LatencyMs    float64
	LatencyPeak  float64
	LatencyAvg   float64
	RetransCount uint64
	RetransPct   float64

	JitterMs   float64
	JitterPeak float64
	JitterAvg  float64
	LossCount  uint64
	LossPct    float64
}

// CompositionSnapshot is a window+cumulative two-way split with derived
// cumulative percentages, spec.md §3.
type CompositionSnapshot struct {
	WindowA, WindowB uint64
	CumA, CumB       uint64
	PctA, PctB       float64
}

// OverallMetrics is the session-wide record from spec.md §3.
type OverallMetrics struct {
	ProtocolMetrics

	GoodputInBps   float64
	GoodputOutBps  float64
	GoodputInPeak  float64
	GoodputInAvg   float64
	GoodputOutPeak float64
	GoodputOutAvg  float64

	StreamCount           int
	TotalPackets          uint64
	ProtocolDistribution  map[model.ProtocolCategory]uint64
	LastUpdate            time.Time
	SessionStatus         string
}

// Snapshot is the full output of one Metrics Engine compute pass.
type Snapshot struct {
	Overall OverallMetrics
	TCP     ProtocolMetrics
	UDP     ProtocolMetrics
	RTP     ProtocolMetrics
	QUIC    ProtocolMetrics
	DNS     ProtocolMetrics
	IGMP    ProtocolMetrics

	IPv4Throughput ProtocolMetrics
	IPv6Throughput ProtocolMetrics

	IPComposition         CompositionSnapshot
	EncryptionComposition CompositionSnapshot

	TopTalkers []TopTalker
	History    []*model.Packet
}

package metrics

import "firestige.xyz/netprobe/internal/model"

// Totals is the cumulative-only view the Report Builder consumes,
// spec.md §4.9: values read directly from running aggregators and
// composition counters, never from history arrays.
type Totals struct {
	OverallPPS          float64
	OverallInAvgBps     float64
	OverallOutAvgBps    float64
	GoodputInAvgBps     float64
	GoodputOutAvgBps    float64
	TotalPackets        uint64
	ProtocolDistribution map[model.ProtocolCategory]uint64

	IPComposition         CompositionSnapshot
	EncryptionComposition CompositionSnapshot

	TCP  ProtoTotals
	UDP  ProtoTotals
	RTP  ProtoTotals
	QUIC ProtoTotals
	DNS  ProtoTotals
	IGMP ProtoTotals
}

// ProtoTotals is the cumulative per-protocol block of a Totals report.
type ProtoTotals struct {
	Packets       uint64
	InAvgBps      float64
	OutAvgBps     float64
	LatencyAvgMs  float64 // TCP only
	RetransCount  uint64  // TCP only
	RetransPct    float64 // TCP only
	JitterAvgMs   float64 // RTP only
	LossCount     uint64  // RTP only
	LossPct       float64 // RTP only
}

// Totals returns a snapshot of cumulative session state.
func (e *Engine) Totals() Totals {
	s := e.state
	t := Totals{
		OverallPPS:           safeDiv(float64(sumDistribution(s.protocolDistribution)), s.overallThroughput.CumDuration),
		OverallInAvgBps:      s.overallThroughput.InAvgBps(),
		OverallOutAvgBps:     s.overallThroughput.OutAvgBps(),
		GoodputInAvgBps:      s.overallGoodput.InAvgBps(),
		GoodputOutAvgBps:     s.overallGoodput.OutAvgBps(),
		TotalPackets:         sumDistribution(s.protocolDistribution),
		ProtocolDistribution: copyDistribution(s.protocolDistribution),
	}

	ipA, ipB := s.ipComposition.Percentages()
	t.IPComposition = CompositionSnapshot{CumA: s.ipComposition.CumA, CumB: s.ipComposition.CumB, PctA: ipA, PctB: ipB}
	encA, encB := s.encryption.Percentages()
	t.EncryptionComposition = CompositionSnapshot{CumA: s.encryption.CumA, CumB: s.encryption.CumB, PctA: encA, PctB: encB}

	t.TCP = ProtoTotals{
		Packets:      s.tcpRetrans.Total,
		InAvgBps:     s.tcp.InAvgBps(),
		OutAvgBps:    s.tcp.OutAvgBps(),
		LatencyAvgMs: s.tcpLatency.Avg(),
		RetransCount: s.tcpRetrans.Count,
		RetransPct:   s.tcpRetrans.Percentage(),
	}
	t.UDP = ProtoTotals{Packets: s.protocolDistribution[model.CategoryUDP], InAvgBps: s.udp.InAvgBps(), OutAvgBps: s.udp.OutAvgBps()}
	t.QUIC = ProtoTotals{Packets: s.protocolDistribution[model.CategoryQUIC], InAvgBps: s.quic.InAvgBps(), OutAvgBps: s.quic.OutAvgBps()}
	t.DNS = ProtoTotals{Packets: s.protocolDistribution[model.CategoryDNS], InAvgBps: s.dns.InAvgBps(), OutAvgBps: s.dns.OutAvgBps()}
	t.IGMP = ProtoTotals{Packets: s.protocolDistribution[model.CategoryIGMP], InAvgBps: s.igmp.InAvgBps(), OutAvgBps: s.igmp.OutAvgBps()}
	t.RTP = ProtoTotals{
		Packets:     s.rtpReceived,
		InAvgBps:    s.rtpThroughput.InAvgBps(),
		OutAvgBps:   s.rtpThroughput.OutAvgBps(),
		JitterAvgMs: s.rtpJitter.Avg(),
		LossCount:   s.rtpLossCount,
		LossPct:     safeDiv(float64(s.rtpLossCount)*100, float64(s.rtpReceived+s.rtpLossCount)),
	}

	return t
}

func sumDistribution(m map[model.ProtocolCategory]uint64) uint64 {
	var sum uint64
	for _, v := range m {
		sum += v
	}
	return sum
}

// Package metrics is the Metrics Engine: it consumes a closed capture
// window and produces a fresh snapshot plus updated cumulative running
// aggregators, per spec.md §4.4.
package metrics

import (
	"net/netip"
	"time"

	"firestige.xyz/netprobe/internal/flow"
	"firestige.xyz/netprobe/internal/model"
)

// OwnAddressChecker reports whether an address belongs to this host,
// used for direction attribution and top-talker eligibility.
type OwnAddressChecker interface {
	Contains(addr netip.Addr) bool
}

type direction int

const (
	dirNeither direction = iota
	dirInbound
	dirOutbound
)

// engineState holds every cumulative field the Metrics Engine owns.
// Reset swaps in a freshly constructed value rather than zeroing fields
// one by one, per spec.md §9's design note.
type engineState struct {
	overallThroughput RateAggregator
	overallGoodput    RateAggregator

	tcp        RateAggregator
	tcpLatency SampleAggregator
	tcpRetrans CountAggregator // Count=retransmissions, Total=TCP packets

	udp, quic, dns, igmp RateAggregator

	rtpThroughput RateAggregator
	rtpJitter     SampleAggregator
	rtpLossCount  uint64
	rtpReceived   uint64 // cumulative RTP packets carrying a sequence number

	ipv4, ipv6 RateAggregator

	protocolDistribution map[model.ProtocolCategory]uint64
	ipComposition        Composition // A=ipv4, B=ipv6
	encryption           Composition // A=encrypted, B=unencrypted
	talkers              *topTalkers
	rtp                  *rtpTracker
}

func newEngineState() *engineState {
	return &engineState{
		protocolDistribution: make(map[model.ProtocolCategory]uint64),
		talkers:              newTopTalkers(),
		rtp:                  newRTPTracker(),
	}
}

// Engine is the Metrics Engine. One Engine exists per session.
type Engine struct {
	own                OwnAddressChecker
	configuredDuration time.Duration
	state              *engineState
}

// New creates a Metrics Engine. configuredDuration is the fallback D used
// when a window's observed wall duration is shorter, spec.md §4.4.
func New(own OwnAddressChecker, configuredDuration time.Duration) *Engine {
	return &Engine{own: own, configuredDuration: configuredDuration, state: newEngineState()}
}

// Reset clears all cumulative state. IP composition, encryption
// composition, protocol distribution, top talkers and every running
// aggregator are zeroed; only the own-address set and configured window
// duration survive.
func (e *Engine) Reset() {
	e.state = newEngineState()
}

func (e *Engine) directionOf(pkt *model.Packet) direction {
	if e.own == nil {
		return dirNeither
	}
	if pkt.Src.IsValid() && e.own.Contains(pkt.Src) {
		return dirOutbound
	}
	if pkt.Dst.IsValid() && e.own.Contains(pkt.Dst) {
		return dirInbound
	}
	return dirNeither
}

type bitBucket struct {
	inBits, outBits float64
}

// Compute runs one window through the engine, spec.md §4.4. An empty
// window zeroes all per-window fields and adds nothing to the cumulative
// sums, counts and distributions; each rate aggregator's cumulative
// duration still advances by the window length.
func (e *Engine) Compute(w *model.Window, sessionStatus string) *Snapshot {
	s := e.state

	windowSecs := w.WallDuration().Seconds()
	configuredSecs := e.configuredDuration.Seconds()
	d := windowSecs
	if configuredSecs > d {
		d = configuredSecs
	}
	if d <= 0 {
		d = 1
	}

	var overall bitBucket
	var goodput bitBucket
	byCategory := make(map[model.ProtocolCategory]*bitBucket)
	ipv4Bits := &bitBucket{}
	ipv6Bits := &bitBucket{}

	windowCounts := make(map[model.ProtocolCategory]uint64)
	var windowIPv4, windowIPv6 uint64
	var windowEncrypted, windowUnencrypted uint64
	var totalPackets uint64

	var latencyWeightedSum, latencyWeight float64
	var jitterWeightedSum, jitterWeight float64

	bucketFor := func(cat model.ProtocolCategory) *bitBucket {
		b, ok := byCategory[cat]
		if !ok {
			b = &bitBucket{}
			byCategory[cat] = b
		}
		return b
	}

	for _, pkts := range w.Streams {
		var rttSamples []float64
		var tcpPktCount int
		var lastJitterMs float64
		var jitterCount int

		for _, pkt := range pkts {
			category := flow.Category(pkt)
			totalPackets++
			windowCounts[category]++
			s.protocolDistribution[category]++

			isV4, isV6 := pkt.IsIPv4(), pkt.IsIPv6()
			if isV4 {
				windowIPv4++
			} else if isV6 {
				windowIPv6++
			}

			if flow.IsEncrypted(pkt) {
				windowEncrypted++
			} else {
				windowUnencrypted++
			}

			dir := e.directionOf(pkt)
			bits := float64(pkt.ByteLen) * 8
			cb := bucketFor(category)
			switch dir {
			case dirOutbound:
				overall.outBits += bits
				cb.outBits += bits
				if isV4 {
					ipv4Bits.outBits += bits
				} else if isV6 {
					ipv6Bits.outBits += bits
				}
			case dirInbound:
				overall.inBits += bits
				cb.inBits += bits
				if isV4 {
					ipv4Bits.inBits += bits
				} else if isV6 {
					ipv6Bits.inBits += bits
				}
			}

			if gBytes := goodputBytes(pkt, category); gBytes > 0 {
				gBits := float64(gBytes) * 8
				switch dir {
				case dirOutbound:
					goodput.outBits += gBits
				case dirInbound:
					goodput.inBits += gBits
				}
			}

			if dir == dirOutbound && pkt.Dst.IsValid() {
				s.talkers.add(pkt.Src, pkt.Dst, uint64(pkt.ByteLen))
			}

			if pkt.HasTCPStream {
				tcpPktCount++
				s.tcpRetrans.Total++
				if pkt.IsTCPRetransmission() {
					s.tcpRetrans.Count++
				}
			}
			if pkt.HasTCPAckRTT && pkt.TCPAckRTT > 0 {
				rttSamples = append(rttSamples, pkt.TCPAckRTT*1000)
			}

			if pkt.HasRTPSSRC {
				lossGap, jitterMs := s.rtp.process(pkt)
				if pkt.HasRTPSeq {
					s.rtpReceived++
					s.rtpLossCount += uint64(lossGap)
				}
				if pkt.HasRTPTimestamp {
					lastJitterMs = jitterMs
					jitterCount++
				}
			}
		}

		if len(rttSamples) > 0 {
			weight := tcpPktCount
			if weight == 0 {
				weight = len(pkts)
			}
			latencyWeightedSum += average(rttSamples) * float64(weight)
			latencyWeight += float64(weight)
		}
		if jitterCount > 0 {
			jitterWeightedSum += lastJitterMs * float64(jitterCount)
			jitterWeight += float64(jitterCount)
		}
	}

	windowLatencyMs := safeDiv(latencyWeightedSum, latencyWeight)
	windowJitterMs := safeDiv(jitterWeightedSum, jitterWeight)

	tcpBits := bucketOrZero(byCategory, model.CategoryTCP)
	udpBits := bucketOrZero(byCategory, model.CategoryUDP)
	quicBits := bucketOrZero(byCategory, model.CategoryQUIC)
	dnsBits := bucketOrZero(byCategory, model.CategoryDNS)
	igmpBits := bucketOrZero(byCategory, model.CategoryIGMP)
	rtpBits := bucketOrZero(byCategory, model.CategoryRTP)

	s.overallThroughput.Update(overall.inBits, overall.outBits, d)
	s.overallGoodput.Update(goodput.inBits, goodput.outBits, d)
	s.tcp.Update(tcpBits.inBits, tcpBits.outBits, d)
	s.udp.Update(udpBits.inBits, udpBits.outBits, d)
	s.quic.Update(quicBits.inBits, quicBits.outBits, d)
	s.dns.Update(dnsBits.inBits, dnsBits.outBits, d)
	s.igmp.Update(igmpBits.inBits, igmpBits.outBits, d)
	s.rtpThroughput.Update(rtpBits.inBits, rtpBits.outBits, d)
	s.ipv4.Update(ipv4Bits.inBits, ipv4Bits.outBits, d)
	s.ipv6.Update(ipv6Bits.inBits, ipv6Bits.outBits, d)

	s.tcpLatency.Add(windowLatencyMs)
	s.rtpJitter.Add(windowJitterMs)

	s.ipComposition.Add(windowIPv4, windowIPv6)
	s.encryption.Add(windowEncrypted, windowUnencrypted)

	snap := &Snapshot{
		History:    append([]*model.Packet(nil), w.History...),
		TopTalkers: s.talkers.top7(),
	}

	snap.Overall = OverallMetrics{
		ProtocolMetrics: ProtocolMetrics{
			PacketsPerSecond: float64(totalPackets) / d,
			InThroughputBps:  safeDiv(overall.inBits, d),
			OutThroughputBps: safeDiv(overall.outBits, d),
			InThroughputPeak: s.overallThroughput.InPeakBps,
			InThroughputAvg:  s.overallThroughput.InAvgBps(),
			OutThroughputPeak: s.overallThroughput.OutPeakBps,
			OutThroughputAvg:  s.overallThroughput.OutAvgBps(),
		},
		GoodputInBps:   safeDiv(goodput.inBits, d),
		GoodputOutBps:  safeDiv(goodput.outBits, d),
		GoodputInPeak:  s.overallGoodput.InPeakBps,
		GoodputInAvg:   s.overallGoodput.InAvgBps(),
		GoodputOutPeak: s.overallGoodput.OutPeakBps,
		GoodputOutAvg:  s.overallGoodput.OutAvgBps(),
		StreamCount:    len(w.Streams),
		TotalPackets:   totalPackets,
		ProtocolDistribution: copyDistribution(s.protocolDistribution),
		LastUpdate:     time.Now(),
		SessionStatus:  sessionStatus,
	}

	snap.TCP = protocolMetrics(windowCounts[model.CategoryTCP], d, tcpBits, &s.tcp)
	snap.TCP.LatencyMs = windowLatencyMs
	snap.TCP.LatencyPeak = s.tcpLatency.Peak
	snap.TCP.LatencyAvg = s.tcpLatency.Avg()
	snap.TCP.RetransCount = s.tcpRetrans.Count
	snap.TCP.RetransPct = s.tcpRetrans.Percentage()

	snap.UDP = protocolMetrics(windowCounts[model.CategoryUDP], d, udpBits, &s.udp)
	snap.QUIC = protocolMetrics(windowCounts[model.CategoryQUIC], d, quicBits, &s.quic)
	snap.DNS = protocolMetrics(windowCounts[model.CategoryDNS], d, dnsBits, &s.dns)
	snap.IGMP = protocolMetrics(windowCounts[model.CategoryIGMP], d, igmpBits, &s.igmp)

	snap.RTP = protocolMetrics(windowCounts[model.CategoryRTP], d, rtpBits, &s.rtpThroughput)
	snap.RTP.JitterMs = windowJitterMs
	snap.RTP.JitterPeak = s.rtpJitter.Peak
	snap.RTP.JitterAvg = s.rtpJitter.Avg()
	snap.RTP.LossCount = s.rtpLossCount
	snap.RTP.LossPct = safeDiv(float64(s.rtpLossCount)*100, float64(s.rtpReceived+s.rtpLossCount))

	snap.IPv4Throughput = protocolMetrics(windowIPv4, d, ipv4Bits, &s.ipv4)
	snap.IPv6Throughput = protocolMetrics(windowIPv6, d, ipv6Bits, &s.ipv6)

	ipPctA, ipPctB := s.ipComposition.Percentages()
	snap.IPComposition = CompositionSnapshot{
		WindowA: windowIPv4, WindowB: windowIPv6,
		CumA: s.ipComposition.CumA, CumB: s.ipComposition.CumB,
		PctA: ipPctA, PctB: ipPctB,
	}
	encPctA, encPctB := s.encryption.Percentages()
	snap.EncryptionComposition = CompositionSnapshot{
		WindowA: windowEncrypted, WindowB: windowUnencrypted,
		CumA: s.encryption.CumA, CumB: s.encryption.CumB,
		PctA: encPctA, PctB: encPctB,
	}

	return snap
}

func bucketOrZero(m map[model.ProtocolCategory]*bitBucket, cat model.ProtocolCategory) *bitBucket {
	if b, ok := m[cat]; ok {
		return b
	}
	return &bitBucket{}
}

func protocolMetrics(windowCount uint64, d float64, bucket *bitBucket, agg *RateAggregator) ProtocolMetrics {
	if bucket == nil {
		bucket = &bitBucket{}
	}
	return ProtocolMetrics{
		PacketsPerSecond:  float64(windowCount) / d,
		InThroughputBps:   safeDiv(bucket.inBits, d),
		OutThroughputBps:  safeDiv(bucket.outBits, d),
		InThroughputPeak:  agg.InPeakBps,
		InThroughputAvg:   agg.InAvgBps(),
		OutThroughputPeak: agg.OutPeakBps,
		OutThroughputAvg:  agg.OutAvgBps(),
	}
}

func copyDistribution(m map[model.ProtocolCategory]uint64) map[model.ProtocolCategory]uint64 {
	out := make(map[model.ProtocolCategory]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func average(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

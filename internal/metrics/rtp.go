package metrics

import (
	"math"

	"firestige.xyz/netprobe/internal/model"
)

// rtpStreamState is the per-SSRC continuity state carried across windows
// for the lifetime of a session, spec.md §4.4: sequence continuity and
// RFC 3550 jitter both require memory of the previous packet.
type rtpStreamState struct {
	hasLastSeq bool
	lastSeq    uint16

	clockRate      uint32
	clockRateFixed bool
	detectBuf      []detectSample

	hasJitter    bool
	jitter       float64
	prevTransit  int64
	hasTransit   bool
}

type detectSample struct {
	arrivalSec float64
	rtpTS      uint32
}

// seqGap applies the wraparound/reorder rule from spec.md §4.4 and
// returns the loss contribution of this sequence number (0 when the
// packet is a duplicate or reorder, never negative).
func (s *rtpStreamState) seqGap(seq uint16) uint32 {
	if !s.hasLastSeq {
		s.hasLastSeq = true
		s.lastSeq = seq
		return 0
	}

	switch {
	case seq > s.lastSeq:
		gap := uint32(seq) - uint32(s.lastSeq) - 1
		s.lastSeq = seq
		return gap
	case uint32(s.lastSeq)-uint32(seq) > 32768:
		gap := uint32(65536-int(s.lastSeq)-1) + uint32(seq)
		s.lastSeq = seq
		return gap
	default:
		// Reordered or duplicate: loss already counted at the forward
		// gap, and last_seq must not regress.
		return 0
	}
}

// resolveClockRate resolves the stream's RTP clock rate per spec.md §4.4: static
// table first, else buffered dynamic detection, frozen once determined.
func (s *rtpStreamState) resolveClockRate(payloadType uint8, arrivalSec float64, rtpTS uint32) (uint32, bool) {
	if s.clockRateFixed {
		return s.clockRate, true
	}
	if rate, ok := rtpStaticClockRates[payloadType]; ok {
		s.clockRate, s.clockRateFixed = rate, true
		return rate, true
	}

	s.detectBuf = append(s.detectBuf, detectSample{arrivalSec, rtpTS})
	for i := 1; i < len(s.detectBuf); i++ {
		prev, cur := s.detectBuf[i-1], s.detectBuf[i]
		dArrival := cur.arrivalSec - prev.arrivalSec
		dTS := int64(cur.rtpTS) - int64(prev.rtpTS)
		if dArrival <= 0 || dTS <= 0 {
			continue
		}
		estimate := float64(dTS) / dArrival
		s.clockRate, s.clockRateFixed = snapClockRate(estimate), true
		s.detectBuf = nil
		return s.clockRate, true
	}

	if len(s.detectBuf) >= rtpDetectionBufferSize {
		rate := uint32(8000)
		if len(s.detectBuf) >= 2 {
			first, last := s.detectBuf[0], s.detectBuf[len(s.detectBuf)-1]
			dArrival := last.arrivalSec - first.arrivalSec
			if dArrival > 0 {
				if est := float64(int64(last.rtpTS)-int64(first.rtpTS)) / dArrival; est >= 20000 {
					rate = 90000
				}
			}
		}
		s.clockRate, s.clockRateFixed = rate, true
		s.detectBuf = nil
		return s.clockRate, true
	}

	return 0, false
}

func snapClockRate(estimate float64) uint32 {
	var best uint32
	bestDiff := math.Inf(1)
	for _, candidate := range rtpCandidateClockRates {
		diff := math.Abs(estimate-float64(candidate)) / float64(candidate)
		if diff <= rtpClockRateTolerance && diff < bestDiff {
			best, bestDiff = candidate, diff
		}
	}
	if best != 0 {
		return best
	}
	if estimate < 20000 {
		return 8000
	}
	return 90000
}

// observeJitter feeds one RTP packet into the stream's jitter accumulator per
// RFC 3550, returning the updated jitter in clock-rate units.
func (s *rtpStreamState) observeJitter(arrivalSec float64, rtpTS uint32, clockRate uint32) float64 {
	transit := int64(arrivalSec*float64(clockRate)) - int64(rtpTS)
	if !s.hasTransit {
		s.prevTransit, s.hasTransit = transit, true
		return s.jitter
	}
	d := transit - s.prevTransit
	if d < 0 {
		d = -d
	}
	s.jitter += (float64(d) - s.jitter) / 16
	s.prevTransit = transit
	s.hasJitter = true
	return s.jitter
}

// rtpTracker owns all per-SSRC continuity state for a session.
type rtpTracker struct {
	streams map[uint32]*rtpStreamState
}

func newRTPTracker() *rtpTracker {
	return &rtpTracker{streams: make(map[uint32]*rtpStreamState)}
}

func (t *rtpTracker) stream(ssrc uint32) *rtpStreamState {
	s, ok := t.streams[ssrc]
	if !ok {
		s = &rtpStreamState{}
		t.streams[ssrc] = s
	}
	return s
}

// process runs loss and jitter accounting for one RTP packet, returning
// the loss-gap count and the jitter in milliseconds (0 if not yet primed).
func (t *rtpTracker) process(pkt *model.Packet) (lossGap uint32, jitterMs float64) {
	if !pkt.HasRTPSSRC {
		return 0, 0
	}
	s := t.stream(pkt.RTPSSRC)

	if pkt.HasRTPSeq {
		lossGap = s.seqGap(pkt.RTPSeq)
	}

	if pkt.HasRTPTimestamp {
		arrivalSec := float64(pkt.Arrival.UnixNano()) / 1e9
		if rate, ok := s.resolveClockRate(pkt.RTPPayloadType, arrivalSec, pkt.RTPTimestamp); ok {
			jitterUnits := s.observeJitter(arrivalSec, pkt.RTPTimestamp, rate)
			jitterMs = jitterUnits / float64(rate) * 1000
		}
	}
	return lossGap, jitterMs
}

package metrics

// Header sizes in bytes, spec.md §4.4.
const (
	headerEthernet = 14
	headerIPv4     = 20
	headerIPv6     = 40
	headerTCPMin   = 20
	headerUDP      = 8
	headerRTP      = 12
)

// rtpStaticClockRates is the fixed payload-type → clock-rate table,
// spec.md §4.4. Payload types absent here fall through to dynamic
// detection.
var rtpStaticClockRates = map[uint8]uint32{
	0:  8000,
	8:  8000,
	9:  8000,
	14: 90000,
	18: 8000,
	26: 90000,
	31: 90000,
	32: 90000,
	33: 90000,
	34: 90000,
}

// rtpCandidateClockRates is the snap-to table used once a dynamic-type
// payload's rate has been estimated from timestamp deltas.
var rtpCandidateClockRates = []uint32{8000, 16000, 22050, 44100, 48000, 90000}

const rtpClockRateTolerance = 0.15

// rtpDetectionBufferSize bounds how many packets a dynamic-type RTP
// stream buffers before falling back to the low/high default.
const rtpDetectionBufferSize = 5

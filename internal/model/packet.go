// Package model defines the core data structures shared across the
// capture, classification, and metrics stages. It has zero external
// dependencies, mirroring how the rest of the daemon keeps its data model
// free of any particular transport or storage concern.
package model

import (
	"net/netip"
	"time"
)

// Packet is the atomic, immutable unit the pipeline consumes. Every field
// is a zero value when absent from the capture tool's output line; for
// fields where a legitimate observed zero is also possible (bytes, ports,
// sequence numbers) a separate "Has*" flag distinguishes absence from zero.
type Packet struct {
	FrameIndex uint64
	Arrival    time.Time // from frame.time_epoch

	Src netip.Addr
	Dst netip.Addr

	ByteLen  uint32
	Protocol string // topmost protocol label as named by the capture tool
	Info     string

	TCPStream    int64
	HasTCPStream bool
	UDPStream    int64
	HasUDPStream bool

	TCPAckRTT    float64 // seconds
	HasTCPAckRTT bool

	TCPRetrans        bool
	TCPFastRetrans    bool
	TCPSpuriousRetrans bool

	RTPSSRC    uint32
	HasRTPSSRC bool
	RTPSeq     uint16
	HasRTPSeq  bool
	RTPTimestamp uint32
	HasRTPTimestamp bool
	RTPPayloadType  uint8
	HasRTPPayloadType bool

	IPProto    uint8
	HasIPProto bool

	IPv6NextHeader    uint8
	HasIPv6NextHeader bool

	TCPPayloadLen    uint32
	HasTCPPayloadLen bool
	UDPPayloadLen    uint32
	HasUDPPayloadLen bool

	SrcPort    uint16
	HasSrcPort bool
	DstPort    uint16
	HasDstPort bool

	DNSQueryName   string
	DNSAnswers     []netip.Addr
	TLSSNI         string
	QUICSNI        string
}

// IsIPv4 reports whether the packet's populated address family is IPv4.
// It prefers Src, falling back to Dst, matching "determined by which
// address family is populated" from spec.md §4.4.
func (p *Packet) IsIPv4() bool {
	if p.Src.IsValid() {
		return p.Src.Is4() || p.Src.Is4In6()
	}
	if p.Dst.IsValid() {
		return p.Dst.Is4() || p.Dst.Is4In6()
	}
	return false
}

// IsIPv6 reports whether the packet's populated address family is IPv6.
func (p *Packet) IsIPv6() bool {
	if p.Src.IsValid() {
		return p.Src.Is6() && !p.Src.Is4In6()
	}
	if p.Dst.IsValid() {
		return p.Dst.Is6() && !p.Dst.Is4In6()
	}
	return false
}

// IsTCPRetransmission reports the "retransmission that counts" predicate
// used both for the retransmission counter and for goodput exclusion:
// (retrans OR fast-retrans) AND NOT spurious.
func (p *Packet) IsTCPRetransmission() bool {
	return (p.TCPRetrans || p.TCPFastRetrans) && !p.TCPSpuriousRetrans
}

// ProtocolCategory is the closed classification set from spec.md §3.
type ProtocolCategory string

const (
	CategoryTCP    ProtocolCategory = "TCP"
	CategoryUDP    ProtocolCategory = "UDP"
	CategoryRTP    ProtocolCategory = "RTP"
	CategoryQUIC   ProtocolCategory = "QUIC"
	CategoryDNS    ProtocolCategory = "DNS"
	CategoryTLS    ProtocolCategory = "TLS"
	CategoryIGMP   ProtocolCategory = "IGMP"
	CategoryOthers ProtocolCategory = "Others"
)

// FlowKey groups packets sharing a (category, discriminator) key, per
// spec.md §3.
type FlowKey struct {
	Category      string // "tcp" | "udp" | "rtp" | lowercased label
	Discriminator string
}

// Window holds one capture window's packets, grouped by flow stream and
// also kept in arrival order for dashboard history display.
type Window struct {
	Streams map[FlowKey][]*Packet
	History []*Packet
	Start   time.Time
	End     time.Time
}

// NewWindow allocates an empty window.
func NewWindow() *Window {
	return &Window{Streams: make(map[FlowKey][]*Packet)}
}

// Append records a packet under its flow key and in the history buffer.
func (w *Window) Append(key FlowKey, pkt *Packet) {
	w.Streams[key] = append(w.Streams[key], pkt)
	w.History = append(w.History, pkt)
}

// WallDuration is end-time minus start-time among observed arrival
// timestamps, per spec.md §4.4's throughput definition.
func (w *Window) WallDuration() time.Duration {
	if w.Start.IsZero() || w.End.IsZero() || !w.End.After(w.Start) {
		return 0
	}
	return w.End.Sub(w.Start)
}

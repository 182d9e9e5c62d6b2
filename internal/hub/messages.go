package hub

import (
	"strconv"
	"time"

	"firestige.xyz/netprobe/internal/capture"
	"firestige.xyz/netprobe/internal/geo"
	"firestige.xyz/netprobe/internal/metrics"
	"firestige.xyz/netprobe/internal/model"
)

// clientCommand is the inbound shape from a subscriber, spec.md §6.3.
type clientCommand struct {
	Command   string `json:"command"`
	Interface string `json:"interface,omitempty"`
	Duration  *int   `json:"duration,omitempty"`
}

// serverMessage is the outbound envelope; Type selects which optional
// field set is populated.
type serverMessage struct {
	Type string `json:"type"`

	// command_response
	Command string `json:"command,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Summary string `json:"summary,omitempty"`

	// interfaces_response
	Interfaces []interfaceDTO `json:"interfaces,omitempty"`

	// initial_state / update
	Metrics               *overallMetricsDTO  `json:"metrics,omitempty"`
	NewPackets            []packetDTO         `json:"new_packets,omitempty"`
	PacketsPerSecond      float64             `json:"packets_Per_Second,omitempty"`
	TCPMetrics            *protocolMetricsDTO `json:"tcp_metrics,omitempty"`
	RTPMetrics            *protocolMetricsDTO `json:"rtp_metrics,omitempty"`
	UDPMetrics            *protocolMetricsDTO `json:"udp_metrics,omitempty"`
	QUICMetrics           *protocolMetricsDTO `json:"quic_metrics,omitempty"`
	DNSMetrics            *protocolMetricsDTO `json:"dns_metrics,omitempty"`
	IGMPMetrics           *protocolMetricsDTO `json:"igmp_metrics,omitempty"`
	IPv4Metrics           *protocolMetricsDTO `json:"ipv4_metrics,omitempty"`
	IPv6Metrics           *protocolMetricsDTO `json:"ipv6_metrics,omitempty"`
	IPComposition         *compositionDTO     `json:"ip_composition,omitempty"`
	EncryptionComposition *compositionDTO     `json:"encryption_composition,omitempty"`
	TopTalkers            []any               `json:"top_talkers,omitempty"`
	NewGeolocations       []geoRecordDTO      `json:"new_geolocations,omitempty"`

	// status_response
	Status *overallMetricsDTO `json:"status,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}

type interfaceDTO struct {
	Index       int    `json:"index"`
	Device      string `json:"device"`
	Description string `json:"description"`
}

func interfaceDTOs(in []capture.Interface) []interfaceDTO {
	out := make([]interfaceDTO, len(in))
	for i, iface := range in {
		out[i] = interfaceDTO{Index: iface.Index, Device: iface.Device, Description: iface.Description}
	}
	return out
}

type packetDTO struct {
	Timestamp time.Time `json:"timestamp"`
	Src       string    `json:"src"`
	Dst       string    `json:"dst"`
	Bytes     uint32    `json:"bytes"`
	Protocol  string    `json:"protocol"`
}

func packetDTOs(in []*model.Packet) []packetDTO {
	out := make([]packetDTO, len(in))
	for i, pkt := range in {
		out[i] = packetDTO{
			Timestamp: pkt.Arrival,
			Src:       pkt.Src.String(),
			Dst:       pkt.Dst.String(),
			Bytes:     pkt.ByteLen,
			Protocol:  pkt.Protocol,
		}
	}
	return out
}

type protocolMetricsDTO struct {
	PacketsPerSecond  float64 `json:"packets_per_second"`
	InThroughputBps   float64 `json:"in_throughput_bps"`
	OutThroughputBps  float64 `json:"out_throughput_bps"`
	InThroughputPeak  float64 `json:"in_throughput_peak"`
	InThroughputAvg   float64 `json:"in_throughput_avg"`
	OutThroughputPeak float64 `json:"out_throughput_peak"`
	OutThroughputAvg  float64 `json:"out_throughput_avg"`
	LatencyMs         float64 `json:"latency_ms,omitempty"`
	LatencyAvgMs      float64 `json:"latency_avg_ms,omitempty"`
	RetransCount      uint64  `json:"retrans_count,omitempty"`
	RetransPct        float64 `json:"retrans_pct,omitempty"`
	JitterMs          float64 `json:"jitter_ms,omitempty"`
	JitterAvgMs       float64 `json:"jitter_avg_ms,omitempty"`
	LossCount         uint64  `json:"loss_count,omitempty"`
	LossPct           float64 `json:"loss_pct,omitempty"`
}

func protocolMetricsDTOFrom(m metrics.ProtocolMetrics) *protocolMetricsDTO {
	return &protocolMetricsDTO{
		PacketsPerSecond:  m.PacketsPerSecond,
		InThroughputBps:   m.InThroughputBps,
		OutThroughputBps:  m.OutThroughputBps,
		InThroughputPeak:  m.InThroughputPeak,
		InThroughputAvg:   m.InThroughputAvg,
		OutThroughputPeak: m.OutThroughputPeak,
		OutThroughputAvg:  m.OutThroughputAvg,
		LatencyMs:         m.LatencyMs,
		LatencyAvgMs:      m.LatencyAvg,
		RetransCount:      m.RetransCount,
		RetransPct:        m.RetransPct,
		JitterMs:          m.JitterMs,
		JitterAvgMs:       m.JitterAvg,
		LossCount:         m.LossCount,
		LossPct:           m.LossPct,
	}
}

type overallMetricsDTO struct {
	protocolMetricsDTO
	GoodputInBps         float64        `json:"goodput_in_bps"`
	GoodputOutBps        float64        `json:"goodput_out_bps"`
	GoodputInPeak        float64        `json:"goodput_in_peak"`
	GoodputInAvg         float64        `json:"goodput_in_avg"`
	GoodputOutPeak       float64        `json:"goodput_out_peak"`
	GoodputOutAvg        float64        `json:"goodput_out_avg"`
	StreamCount          int            `json:"stream_count"`
	TotalPackets         uint64         `json:"total_packets"`
	ProtocolDistribution map[string]uint64 `json:"protocol_distribution"`
	LastUpdate           time.Time      `json:"last_update"`
	SessionStatus        string         `json:"session_status"`
}

func overallMetricsDTOFrom(m metrics.OverallMetrics) *overallMetricsDTO {
	dist := make(map[string]uint64, len(m.ProtocolDistribution))
	for k, v := range m.ProtocolDistribution {
		dist[string(k)] = v
	}
	return &overallMetricsDTO{
		protocolMetricsDTO:   *protocolMetricsDTOFrom(m.ProtocolMetrics),
		GoodputInBps:         m.GoodputInBps,
		GoodputOutBps:        m.GoodputOutBps,
		GoodputInPeak:        m.GoodputInPeak,
		GoodputInAvg:         m.GoodputInAvg,
		GoodputOutPeak:       m.GoodputOutPeak,
		GoodputOutAvg:        m.GoodputOutAvg,
		StreamCount:          m.StreamCount,
		TotalPackets:         m.TotalPackets,
		ProtocolDistribution: dist,
		LastUpdate:           m.LastUpdate,
		SessionStatus:        m.SessionStatus,
	}
}

type compositionDTO struct {
	WindowA uint64  `json:"window_a"`
	WindowB uint64  `json:"window_b"`
	CumA    uint64  `json:"cum_a"`
	CumB    uint64  `json:"cum_b"`
	PctA    float64 `json:"pct_a"`
	PctB    float64 `json:"pct_b"`
}

func compositionDTOFrom(c metrics.CompositionSnapshot) *compositionDTO {
	return &compositionDTO{WindowA: c.WindowA, WindowB: c.WindowB, CumA: c.CumA, CumB: c.CumB, PctA: c.PctA, PctB: c.PctB}
}

// topTalkerTuples renders each entry as spec.md §6.3's literal
// [src, dst, pkts, bytes-as-string] array.
func topTalkerTuples(in []metrics.TopTalker) []any {
	out := make([]any, len(in))
	for i, t := range in {
		out[i] = []any{t.Src.String(), t.Dst.String(), t.Packets, strconv.FormatUint(t.Bytes, 10)}
	}
	return out
}

type geoRecordDTO struct {
	IP        string  `json:"ip"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Hostname  string  `json:"hostname"`
	App       string  `json:"app,omitempty"`
	Category  string  `json:"category,omitempty"`
}

func geoRecordDTOs(in []geo.Record) []geoRecordDTO {
	out := make([]geoRecordDTO, len(in))
	for i, r := range in {
		out[i] = geoRecordDTO{
			IP: r.IP.String(), Latitude: r.Latitude, Longitude: r.Longitude,
			City: r.City, Country: r.Country, Hostname: r.Hostname,
			App: r.App, Category: r.Category,
		}
	}
	return out
}

// snapshotMessage fills the shared update/initial_state field set from a
// metrics snapshot plus any queued enrichment records.
func snapshotMessage(msgType string, snap *metrics.Snapshot, geoRecords []geo.Record) serverMessage {
	msg := serverMessage{Type: msgType}
	if snap == nil {
		msg.Metrics = overallMetricsDTOFrom(metrics.OverallMetrics{})
		return msg
	}
	msg.Metrics = overallMetricsDTOFrom(snap.Overall)
	msg.NewPackets = packetDTOs(snap.History)
	msg.PacketsPerSecond = snap.Overall.PacketsPerSecond
	msg.TCPMetrics = protocolMetricsDTOFrom(snap.TCP)
	msg.RTPMetrics = protocolMetricsDTOFrom(snap.RTP)
	msg.UDPMetrics = protocolMetricsDTOFrom(snap.UDP)
	msg.QUICMetrics = protocolMetricsDTOFrom(snap.QUIC)
	msg.DNSMetrics = protocolMetricsDTOFrom(snap.DNS)
	msg.IGMPMetrics = protocolMetricsDTOFrom(snap.IGMP)
	msg.IPv4Metrics = protocolMetricsDTOFrom(snap.IPv4Throughput)
	msg.IPv6Metrics = protocolMetricsDTOFrom(snap.IPv6Throughput)
	msg.IPComposition = compositionDTOFrom(snap.IPComposition)
	msg.EncryptionComposition = compositionDTOFrom(snap.EncryptionComposition)
	msg.TopTalkers = topTalkerTuples(snap.TopTalkers)
	msg.NewGeolocations = geoRecordDTOs(geoRecords)
	return msg
}

package capture

import (
	"net/netip"
	"strconv"
	"strings"
	"time"

	"firestige.xyz/netprobe/internal/model"
)

// ParseLine parses one delimited capture-tool output line into a Packet.
// Absent fields become zero values; numeric conversions that fail yield
// absence rather than a fatal error, per spec.md §4.1. ok is false only
// for lines that cannot be split into the expected field count — those
// are the "unparseable" sentinel the caller counts and drops.
func ParseLine(line, sep string) (*model.Packet, bool) {
	parts := strings.Split(line, sep)
	if len(parts) < fieldCount {
		return nil, false
	}

	p := &model.Packet{}

	if n, err := strconv.ParseUint(parts[fFrameNumber], 10, 64); err == nil {
		p.FrameIndex = n
	}
	if t, err := strconv.ParseFloat(parts[fTimeEpoch], 64); err == nil {
		sec := int64(t)
		nsec := int64((t - float64(sec)) * 1e9)
		p.Arrival = time.Unix(sec, nsec).UTC()
	}

	p.Src = parseAddr(parts[fIPSrc], parts[fIPv6Src])
	p.Dst = parseAddr(parts[fIPDst], parts[fIPv6Dst])

	if n, err := strconv.ParseUint(parts[fFrameLen], 10, 32); err == nil {
		p.ByteLen = uint32(n)
	}

	p.Protocol = strings.TrimSpace(parts[fProtocol])
	p.Info = parts[fInfo]

	if n, err := strconv.ParseInt(parts[fTCPStream], 10, 64); err == nil {
		p.TCPStream, p.HasTCPStream = n, true
	}
	if n, err := strconv.ParseInt(parts[fUDPStream], 10, 64); err == nil {
		p.UDPStream, p.HasUDPStream = n, true
	}
	if f, err := strconv.ParseFloat(parts[fTCPAckRTT], 64); err == nil {
		p.TCPAckRTT, p.HasTCPAckRTT = f, true
	}

	p.TCPRetrans = parseFlag(parts[fTCPRetrans])
	p.TCPFastRetrans = parseFlag(parts[fTCPFastRetrans])
	p.TCPSpuriousRetrans = parseFlag(parts[fTCPSpuriousRetrans])

	if n, err := strconv.ParseUint(parts[fRTPSSRC], 0, 32); err == nil {
		p.RTPSSRC, p.HasRTPSSRC = uint32(n), true
	}
	if n, err := strconv.ParseUint(parts[fRTPSeq], 10, 16); err == nil {
		p.RTPSeq, p.HasRTPSeq = uint16(n), true
	}
	if n, err := strconv.ParseUint(parts[fIPProto], 10, 8); err == nil {
		p.IPProto, p.HasIPProto = uint8(n), true
	}
	if n, err := strconv.ParseUint(parts[fRTPTimestamp], 10, 32); err == nil {
		p.RTPTimestamp, p.HasRTPTimestamp = uint32(n), true
	}
	if n, err := strconv.ParseUint(parts[fRTPPType], 10, 8); err == nil {
		p.RTPPayloadType, p.HasRTPPayloadType = uint8(n), true
	}
	if n, err := strconv.ParseUint(parts[fIPv6Nxt], 10, 8); err == nil {
		p.IPv6NextHeader, p.HasIPv6NextHeader = uint8(n), true
	}
	if n, err := strconv.ParseUint(parts[fTCPLen], 10, 32); err == nil {
		p.TCPPayloadLen, p.HasTCPPayloadLen = uint32(n), true
	}
	if n, err := strconv.ParseUint(parts[fUDPLen], 10, 32); err == nil {
		p.UDPPayloadLen, p.HasUDPPayloadLen = uint32(n), true
	}

	if port, ok := parsePort(parts[fTCPSrcPort], parts[fUDPSrcPort]); ok {
		p.SrcPort, p.HasSrcPort = port, true
	}
	if port, ok := parsePort(parts[fTCPDstPort], parts[fUDPDstPort]); ok {
		p.DstPort, p.HasDstPort = port, true
	}

	p.DNSQueryName = strings.TrimSpace(parts[fDNSQryName])
	p.DNSAnswers = parseAddrList(parts[fDNSA], parts[fDNSAAAA])
	p.TLSSNI = strings.TrimSpace(parts[fTLSSNI])
	p.QUICSNI = strings.TrimSpace(parts[fQUICSNI])

	return p, true
}

func parseFlag(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != "0" && !strings.EqualFold(s, "false")
}

func parseAddr(v4, v6 string) netip.Addr {
	if v4 = strings.TrimSpace(v4); v4 != "" {
		if a, err := netip.ParseAddr(v4); err == nil {
			return a
		}
	}
	if v6 = strings.TrimSpace(v6); v6 != "" {
		if a, err := netip.ParseAddr(v6); err == nil {
			return a
		}
	}
	return netip.Addr{}
}

func parseAddrList(v4list, v6list string) []netip.Addr {
	var out []netip.Addr
	for _, raw := range strings.FieldsFunc(v4list+","+v6list, func(r rune) bool { return r == ',' }) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if a, err := netip.ParseAddr(raw); err == nil {
			out = append(out, a)
		}
	}
	return out
}

func parsePort(tcp, udp string) (uint16, bool) {
	if tcp = strings.TrimSpace(tcp); tcp != "" {
		if n, err := strconv.ParseUint(tcp, 10, 16); err == nil {
			return uint16(n), true
		}
	}
	if udp = strings.TrimSpace(udp); udp != "" {
		if n, err := strconv.ParseUint(udp, 10, 16); err == nil {
			return uint16(n), true
		}
	}
	return 0, false
}

// IPProtoToCategoryHint maps the IP protocol number to a flow category
// label, used to tie-break classification when the protocol label is
// absent, per spec.md §4.2.
func IPProtoToCategoryHint(proto uint8) (string, bool) {
	switch proto {
	case 6:
		return "tcp", true
	case 17:
		return "udp", true
	case 1:
		return "icmp", true
	case 2:
		return "igmp", true
	case 47:
		return "gre", true
	case 50:
		return "esp", true
	case 51:
		return "ah", true
	default:
		return "", false
	}
}

package metrics

import "firestige.xyz/netprobe/internal/model"

// goodputBytes computes the application-layer useful bytes contributed by
// one packet under its protocol category, spec.md §4.4. It is expressed
// as a table lookup rather than a per-protocol cascade, per the dispatch
// pattern in spec.md §9.
var goodputTable = map[model.ProtocolCategory]func(pkt *model.Packet) int64{
	model.CategoryTCP: func(pkt *model.Packet) int64 {
		if pkt.IsTCPRetransmission() {
			return 0
		}
		if pkt.HasTCPPayloadLen {
			return int64(pkt.TCPPayloadLen)
		}
		return 0
	},
	model.CategoryUDP:  udpGoodput,
	model.CategoryQUIC: udpGoodput,
	model.CategoryDNS:  udpGoodput,
	model.CategoryRTP: func(pkt *model.Packet) int64 {
		if !pkt.HasUDPPayloadLen {
			return 0
		}
		n := int64(pkt.UDPPayloadLen) - headerUDP - headerRTP
		if n < 0 {
			return 0
		}
		return n
	},
	model.CategoryIGMP: ipPayload,
}

func udpGoodput(pkt *model.Packet) int64 {
	if !pkt.HasUDPPayloadLen {
		return 0
	}
	n := int64(pkt.UDPPayloadLen) - headerUDP
	if n < 0 {
		return 0
	}
	return n
}

func ipPayload(pkt *model.Packet) int64 {
	headerSize := int64(headerIPv4)
	if pkt.IsIPv6() {
		headerSize = headerIPv6
	}
	n := int64(pkt.ByteLen) - headerSize
	if n < 0 {
		return 0
	}
	return n
}

// goodputBytes looks up the category's goodput function, falling back to
// the generic IP-payload computation for anything not in the table
// ("Others" per spec.md §4.4).
func goodputBytes(pkt *model.Packet, category model.ProtocolCategory) int64 {
	if fn, ok := goodputTable[category]; ok {
		return fn(pkt)
	}
	return ipPayload(pkt)
}

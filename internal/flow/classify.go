// Package flow computes the flow-stream key and protocol category for a
// parsed packet, and drives the inline App Detector update, per spec.md
// §4.2. It runs in-line to the Window Batcher — there is no separate
// classification stage or queue.
package flow

import (
	"net/netip"
	"strconv"
	"strings"

	"firestige.xyz/netprobe/internal/appdetect"
	"firestige.xyz/netprobe/internal/capture"
	"firestige.xyz/netprobe/internal/model"
)

// encryptedSubstrings is the fixed set tested against the uppercased
// protocol label, per spec.md §4.4.
var encryptedSubstrings = []string{
	"TLS", "SSL", "DTLS", "QUIC", "SSH", "IPSEC", "ESP", "AH", "HTTPS",
	"SKYPE", "SMTPS", "IMAPS", "POP3S", "FTPS", "SFTP", "SRTP", "LDAPS", "DNSSEC",
}

// Classifier pairs protocol-category/flow-key assignment with the App
// Detector it drives inline.
type Classifier struct {
	Detector *appdetect.Detector
}

// New creates a Classifier backed by the given App Detector.
func New(d *appdetect.Detector) *Classifier {
	return &Classifier{Detector: d}
}

// Key computes the flow-stream grouping key, spec.md §3: it keys on the
// transport-level stream (tcp.stream / udp.stream) whenever one is
// present, independent of the app-layer category, so a TLS or QUIC
// packet riding a TCP stream groups with the rest of that TCP
// connection rather than splitting into its own bucket. RTP's SSRC is
// the fallback discriminator only when no transport stream id is
// available; anything left over groups by its own lowercased label.
func Key(pkt *model.Packet, category model.ProtocolCategory) model.FlowKey {
	if pkt.HasTCPStream {
		return model.FlowKey{Category: "tcp", Discriminator: strconv.FormatInt(pkt.TCPStream, 10)}
	}
	if pkt.HasUDPStream {
		return model.FlowKey{Category: "udp", Discriminator: strconv.FormatInt(pkt.UDPStream, 10)}
	}
	if category == model.CategoryRTP && pkt.HasRTPSSRC {
		return model.FlowKey{Category: "rtp", Discriminator: strconv.FormatUint(uint64(pkt.RTPSSRC), 10)}
	}
	return model.FlowKey{Category: strings.ToLower(pkt.Protocol), Discriminator: "misc"}
}

// Category assigns the closed-set protocol category, spec.md §3: first
// match wins. When the protocol label is empty, the IP-protocol-number
// hint from the capture parser ties the category down to tcp/udp/igmp/others.
func Category(pkt *model.Packet) model.ProtocolCategory {
	label := strings.ToUpper(strings.TrimSpace(pkt.Protocol))

	switch label {
	case "TCP":
		return model.CategoryTCP
	case "UDP":
		return model.CategoryUDP
	case "QUIC":
		return model.CategoryQUIC
	case "DNS":
		return model.CategoryDNS
	}
	if label == "RTP" || label == "SRTP" {
		return model.CategoryRTP
	}
	if strings.Contains(label, "TLS") {
		return model.CategoryTLS
	}
	if strings.Contains(label, "IGMP") {
		return model.CategoryIGMP
	}

	if label == "" && pkt.HasIPProto {
		if hint, ok := capture.IPProtoToCategoryHint(pkt.IPProto); ok {
			switch hint {
			case "tcp":
				return model.CategoryTCP
			case "udp":
				return model.CategoryUDP
			case "igmp":
				return model.CategoryIGMP
			}
		}
	}
	return model.CategoryOthers
}

// IsEncrypted reports whether the packet's protocol label matches the
// fixed encrypted-traffic substring set, spec.md §4.4.
func IsEncrypted(pkt *model.Packet) bool {
	label := strings.ToUpper(strings.TrimSpace(pkt.Protocol))
	if label == "" {
		return false
	}
	for _, s := range encryptedSubstrings {
		if strings.Contains(label, s) {
			return true
		}
	}
	return false
}

// Classify computes the flow key for pkt and updates the App Detector
// keyed on remoteAddr (the non-own side of the packet, as determined by
// the caller's direction attribution).
func (c *Classifier) Classify(pkt *model.Packet, remoteAddr netip.Addr) model.FlowKey {
	key := Key(pkt, Category(pkt))
	if c.Detector != nil {
		c.Detector.Classify(pkt, remoteAddr)
	}
	return key
}

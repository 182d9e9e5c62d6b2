package capture

// fields is the ordered field-extraction list from spec.md §6.2. The
// capture tool is invoked with one -e flag per entry, in this order,
// separated by Source.sep, header suppressed.
var fields = []string{
	"frame.number",
	"frame.time_epoch",
	"ip.src",
	"ip.dst",
	"frame.len",
	"_ws.col.Protocol", // protocol-label
	"_ws.col.Info",     // info
	"tcp.stream",
	"udp.stream",
	"tcp.analysis.ack_rtt",
	"tcp.analysis.retransmission",
	"tcp.analysis.fast_retransmission",
	"tcp.analysis.spurious_retransmission",
	"rtp.ssrc",
	"rtp.seq",
	"ip.proto",
	"ipv6.src",
	"ipv6.dst",
	"rtp.timestamp",
	"rtp.p_type",
	"ipv6.nxt",
	"tcp.len",
	"udp.length",
	"tcp.srcport",
	"tcp.dstport",
	"udp.srcport",
	"udp.dstport",
	"dns.qry.name",
	"dns.a",
	"dns.aaaa",
	"tls.handshake.extensions_server_name",
	"quic.tls.handshake.extensions_server_name",
}

// field index constants, matching the order above.
const (
	fFrameNumber = iota
	fTimeEpoch
	fIPSrc
	fIPDst
	fFrameLen
	fProtocol
	fInfo
	fTCPStream
	fUDPStream
	fTCPAckRTT
	fTCPRetrans
	fTCPFastRetrans
	fTCPSpuriousRetrans
	fRTPSSRC
	fRTPSeq
	fIPProto
	fIPv6Src
	fIPv6Dst
	fRTPTimestamp
	fRTPPType
	fIPv6Nxt
	fTCPLen
	fUDPLen
	fTCPSrcPort
	fTCPDstPort
	fUDPSrcPort
	fUDPDstPort
	fDNSQryName
	fDNSA
	fDNSAAAA
	fTLSSNI
	fQUICSNI

	fieldCount
)

// BuildArgs constructs the capture-tool argument list for the given
// interface and separator, matching spec.md §6.2's invocation template.
func BuildArgs(iface, sep string) []string {
	args := []string{
		"-i", iface,
		"-l",
		"-T", "fields",
		"-E", "separator=" + sep,
		"-E", "header=n",
		"-E", "occurrence=f",
	}
	for _, f := range fields {
		args = append(args, "-e", f)
	}
	return args
}

// InterfaceListArgs constructs the argument list for enumerating capture
// interfaces, spec.md §6.2: "-D".
func InterfaceListArgs() []string {
	return []string{"-D"}
}

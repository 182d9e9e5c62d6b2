package capture

import (
	"net/netip"
	"testing"
)

func fieldLine(overrides map[int]string) string {
	parts := make([]string, fieldCount)
	parts[fFrameNumber] = "1"
	parts[fTimeEpoch] = "1700000000.5"
	parts[fIPSrc] = "10.0.0.1"
	parts[fIPDst] = "10.0.0.2"
	parts[fFrameLen] = "128"
	parts[fProtocol] = "TCP"
	for i, v := range overrides {
		parts[i] = v
	}
	line := parts[0]
	for _, p := range parts[1:] {
		line += "|" + p
	}
	return line
}

func TestParseLineBasicFields(t *testing.T) {
	pkt, ok := ParseLine(fieldLine(nil), "|")
	if !ok {
		t.Fatal("expected ok=true for well-formed line")
	}
	if pkt.FrameIndex != 1 {
		t.Errorf("FrameIndex = %d, want 1", pkt.FrameIndex)
	}
	if pkt.Src != netip.MustParseAddr("10.0.0.1") {
		t.Errorf("Src = %v, want 10.0.0.1", pkt.Src)
	}
	if pkt.Dst != netip.MustParseAddr("10.0.0.2") {
		t.Errorf("Dst = %v, want 10.0.0.2", pkt.Dst)
	}
	if pkt.ByteLen != 128 {
		t.Errorf("ByteLen = %d, want 128", pkt.ByteLen)
	}
	if pkt.Protocol != "TCP" {
		t.Errorf("Protocol = %q, want TCP", pkt.Protocol)
	}
}

func TestParseLineTooFewFields(t *testing.T) {
	_, ok := ParseLine("1|2|3", "|")
	if ok {
		t.Fatal("expected ok=false for short line")
	}
}

func TestParseLineMissingNumericFieldsAreAbsentNotFatal(t *testing.T) {
	overrides := map[int]string{fTCPStream: "", fRTPSeq: "not-a-number"}
	pkt, ok := ParseLine(fieldLine(overrides), "|")
	if !ok {
		t.Fatal("expected ok=true even with unparseable numeric fields")
	}
	if pkt.HasTCPStream {
		t.Error("HasTCPStream = true, want false for empty field")
	}
	if pkt.HasRTPSeq {
		t.Error("HasRTPSeq = true, want false for non-numeric field")
	}
}

func TestParseLinePrefersIPv4OverIPv6(t *testing.T) {
	overrides := map[int]string{fIPv6Src: "2001:db8::1"}
	pkt, ok := ParseLine(fieldLine(overrides), "|")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !pkt.Src.Is4() {
		t.Errorf("Src = %v, want IPv4 address when both v4 and v6 fields are set", pkt.Src)
	}
}

func TestParseLineFallsBackToIPv6WhenIPv4Absent(t *testing.T) {
	overrides := map[int]string{fIPSrc: "", fIPDst: "", fIPv6Src: "2001:db8::1", fIPv6Dst: "2001:db8::2"}
	pkt, ok := ParseLine(fieldLine(overrides), "|")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !pkt.Src.Is6() {
		t.Errorf("Src = %v, want IPv6 address", pkt.Src)
	}
}

func TestParseFlagTreatsZeroAndFalseAsUnset(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"False": false,
		"1":     true,
		"true":  true,
	}
	for in, want := range cases {
		if got := parseFlag(in); got != want {
			t.Errorf("parseFlag(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParsePortPrefersTCP(t *testing.T) {
	port, ok := parsePort("443", "53")
	if !ok || port != 443 {
		t.Errorf("parsePort = (%d, %v), want (443, true)", port, ok)
	}
}

func TestParsePortFallsBackToUDP(t *testing.T) {
	port, ok := parsePort("", "53")
	if !ok || port != 53 {
		t.Errorf("parsePort = (%d, %v), want (53, true)", port, ok)
	}
}

func TestIPProtoToCategoryHint(t *testing.T) {
	if hint, ok := IPProtoToCategoryHint(6); !ok || hint != "tcp" {
		t.Errorf("hint(6) = (%q, %v), want (tcp, true)", hint, ok)
	}
	if hint, ok := IPProtoToCategoryHint(17); !ok || hint != "udp" {
		t.Errorf("hint(17) = (%q, %v), want (udp, true)", hint, ok)
	}
	if _, ok := IPProtoToCategoryHint(255); ok {
		t.Error("expected no hint for unknown protocol number")
	}
}

func TestBuildArgsIncludesAllFieldsAndSeparator(t *testing.T) {
	args := BuildArgs("eth0", ";")
	if args[1] != "eth0" {
		t.Errorf("args[1] = %q, want eth0", args[1])
	}
	foundSep := false
	foundFieldCount := 0
	for i, a := range args {
		if a == "separator=;" {
			foundSep = true
		}
		if a == "-e" && i+1 < len(args) {
			foundFieldCount++
		}
	}
	if !foundSep {
		t.Error("expected separator=; in args")
	}
	if foundFieldCount != len(fields) {
		t.Errorf("found %d -e flags, want %d", foundFieldCount, len(fields))
	}
}

package report

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// fallbackSummary renders the same numbers the generator would have
// narrated, in deterministic prose, spec.md §4.9: "the Builder returns a
// deterministic fallback summary containing the same numbers in prose
// form."
func fallbackSummary(p Payload) string {
	t := p.Totals
	var b strings.Builder

	printer.Fprintf(&b, "Session ran for %s and observed %d packets. ", p.SessionDuration, t.TotalPackets)
	printer.Fprintf(&b, "Average inbound throughput was %.0f bps and outbound %.0f bps, with goodput of %.0f/%.0f bps. ",
		t.OverallInAvgBps, t.OverallOutAvgBps, t.GoodputInAvgBps, t.GoodputOutAvgBps)
	printer.Fprintf(&b, "Traffic was %.1f%% IPv4 and %.1f%% IPv6, %.1f%% encrypted. ",
		t.IPComposition.PctA, t.IPComposition.PctB, t.EncryptionComposition.PctA)

	if t.TCP.Packets > 0 {
		printer.Fprintf(&b, "TCP carried %d packets with %.1f ms average latency and a %.2f%% retransmission rate. ",
			t.TCP.Packets, t.TCP.LatencyAvgMs, t.TCP.RetransPct)
	}
	if t.RTP.Packets > 0 {
		printer.Fprintf(&b, "RTP carried %d packets with %.1f ms average jitter and a %.2f%% loss rate. ",
			t.RTP.Packets, t.RTP.JitterAvgMs, t.RTP.LossPct)
	}

	return strings.TrimSpace(b.String())
}

package metrics

// RateAggregator accumulates a throughput-like quantity (bits observed,
// bps peak) across windows, spec.md §3's "Running aggregator": `avg =
// sum / cumulative_duration`.
type RateAggregator struct {
	InSumBits   float64
	OutSumBits  float64
	InPeakBps   float64
	OutPeakBps  float64
	CumDuration float64 // seconds
}

// Update folds one window's observed bits into the aggregator. windowSecs
// is D, the duration the bits were observed over.
func (a *RateAggregator) Update(inBits, outBits, windowSecs float64) {
	if windowSecs <= 0 {
		return
	}
	a.InSumBits += inBits
	a.OutSumBits += outBits
	a.CumDuration += windowSecs

	if inBps := inBits / windowSecs; inBps > 0 && inBps > a.InPeakBps {
		a.InPeakBps = inBps
	}
	if outBps := outBits / windowSecs; outBps > 0 && outBps > a.OutPeakBps {
		a.OutPeakBps = outBps
	}
}

// InAvgBps returns the cumulative average inbound rate.
func (a *RateAggregator) InAvgBps() float64 {
	if a.CumDuration == 0 {
		return 0
	}
	return a.InSumBits / a.CumDuration
}

// OutAvgBps returns the cumulative average outbound rate.
func (a *RateAggregator) OutAvgBps() float64 {
	if a.CumDuration == 0 {
		return 0
	}
	return a.OutSumBits / a.CumDuration
}

// SampleAggregator accumulates a per-event sample (latency, jitter):
// `avg = sum / count`. Samples are only added when positive, spec.md §4.4.
type SampleAggregator struct {
	Sum   float64
	Count uint64
	Peak  float64
}

// Add records one sample if it is positive; zero and negative samples are
// dropped silently per spec.md §4.4.
func (a *SampleAggregator) Add(sample float64) {
	if sample <= 0 {
		return
	}
	a.Sum += sample
	a.Count++
	if sample > a.Peak {
		a.Peak = sample
	}
}

// Avg returns the cumulative mean sample value.
func (a *SampleAggregator) Avg() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Sum / float64(a.Count)
}

// CountAggregator accumulates a discrete count with a running percentage
// against a total, used for TCP retransmissions and RTP loss.
type CountAggregator struct {
	Count uint64
	Total uint64
}

// Percentage returns Count × 100 / Total, or 0 when Total is zero.
func (a *CountAggregator) Percentage() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Count) * 100 / float64(a.Total)
}

// Composition tracks a two-way cumulative split (ipv4/ipv6 or
// encrypted/unencrypted) with per-window and cumulative counts.
type Composition struct {
	WindowA, WindowB uint64
	CumA, CumB       uint64
}

// Add folds a window's (a, b) counts into the cumulative totals.
func (c *Composition) Add(a, b uint64) {
	c.WindowA, c.WindowB = a, b
	c.CumA += a
	c.CumB += b
}

// Percentages returns the cumulative percentage split.
func (c *Composition) Percentages() (pctA, pctB float64) {
	total := c.CumA + c.CumB
	if total == 0 {
		return 0, 0
	}
	return float64(c.CumA) * 100 / float64(total), float64(c.CumB) * 100 / float64(total)
}

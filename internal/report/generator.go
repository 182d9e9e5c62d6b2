package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Generator produces a prose report from a statistics payload. The
// concrete implementation (an LLM call) is an external collaborator,
// spec.md §1 — this package specs only its interface and a deterministic
// fallback.
type Generator interface {
	Generate(ctx context.Context, payload Payload) (string, error)
}

// geminiGenerator calls the Gemini REST API directly; there is no
// ecosystem Go SDK for it in this daemon's dependency stack, so it is
// invoked over plain HTTP, matching the "prompted with a pre-computed
// statistics payload" framing from spec.md §1.
type geminiGenerator struct {
	apiKey     string
	httpClient *http.Client
	endpoint   string
}

// NewGeminiGenerator creates a Generator backed by the Gemini API. apiKey
// is read from the environment variable named by config (GEMINI_API_KEY
// by default); an empty key means report generation is disabled, per
// spec.md §6.5.
func NewGeminiGenerator(apiKey string, timeout time.Duration) Generator {
	return &geminiGenerator{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   "https://generativelanguage.googleapis.com/v1beta/models/gemini-flash-latest:generateContent",
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *geminiGenerator) Generate(ctx context.Context, payload Payload) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("report: generator disabled, GEMINI_API_KEY not set")
	}

	prompt := promptFor(payload)
	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("report: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"?key="+g.apiKey, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("report: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("report: generator call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("report: generator returned %d: %s", resp.StatusCode, string(b))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("report: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("report: empty generator response")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func promptFor(p Payload) string {
	return fmt.Sprintf(
		"Summarize this network capture session in a short paragraph. "+
			"Duration: %s. Total packets: %d. Overall inbound avg: %.0f bps, outbound avg: %.0f bps. "+
			"TCP packets: %d (retrans %.2f%%). RTP packets: %d (loss %.2f%%).",
		p.SessionDuration, p.Totals.TotalPackets, p.Totals.OverallInAvgBps, p.Totals.OverallOutAvgBps,
		p.Totals.TCP.Packets, p.Totals.TCP.RetransPct, p.Totals.RTP.Packets, p.Totals.RTP.LossPct,
	)
}

package patternsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
)

// Client talks to the TA-Lib pattern recognition sidecar. The sidecar is
// optional; callers check Healthy before use and fall back to the builtin
// detectors when it is down.
type Client struct {
	baseURL string
	client  *http.Client

	mu            sync.Mutex
	lastHealth    bool
	lastHealthAt  time.Time
	healthMaxAge  time.Duration
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 5 * time.Second},
		healthMaxAge: 30 * time.Second,
	}
}

// Healthy probes /health, caching the verdict briefly so a scan over many
// symbols does not hammer the sidecar.
func (c *Client) Healthy(ctx context.Context) bool {
	c.mu.Lock()
	if time.Since(c.lastHealthAt) < c.healthMaxAge {
		healthy := c.lastHealth
		c.mu.Unlock()
		return healthy
	}
	c.mu.Unlock()

	healthy := c.probeHealth(ctx)

	c.mu.Lock()
	c.lastHealth = healthy
	c.lastHealthAt = time.Now()
	c.mu.Unlock()
	return healthy
}

func (c *Client) probeHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}
	return body.Status == "healthy"
}

type klinePayload struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type patternResponse struct {
	Success  bool `json:"success"`
	Patterns []struct {
		Name       string  `json:"name"`
		Type       string  `json:"type"`
		Signal     string  `json:"signal"`
		Confidence float64 `json:"confidence"`
		Code       string  `json:"code"`
	} `json:"patterns"`
	Error string `json:"error"`
}

// DetectPatterns posts the candle series to /patterns. The sidecar needs at
// least three klines to run its detectors.
func (c *Client) DetectPatterns(ctx context.Context, candles []domain.Candle) ([]domain.Pattern, error) {
	if len(candles) < 3 {
		return nil, fmt.Errorf("pattern service needs at least 3 candles, got %d", len(candles))
	}

	klines := make([]klinePayload, 0, len(candles))
	for _, candle := range candles {
		klines = append(klines, klinePayload{
			Open:  candle.Open,
			High:  candle.High,
			Low:   candle.Low,
			Close: candle.Close,
		})
	}
	payload, err := json.Marshal(map[string]interface{}{"klines": klines})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/patterns", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pattern service: status %d: %s", resp.StatusCode, string(body))
	}

	var decoded patternResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("pattern service decode: %w", err)
	}
	if !decoded.Success {
		return nil, fmt.Errorf("pattern service: %s", decoded.Error)
	}

	patterns := make([]domain.Pattern, 0, len(decoded.Patterns))
	for _, p := range decoded.Patterns {
		patterns = append(patterns, domain.Pattern{
			Name:       p.Code,
			Category:   categoryOf(p.Signal),
			Confidence: p.Confidence,
			Origin:     domain.OriginExternal,
		})
	}
	return patterns, nil
}

func categoryOf(signal string) domain.PatternCategory {
	switch signal {
	case "bullish":
		return domain.PatternBullish
	case "bearish":
		return domain.PatternBearish
	default:
		return domain.PatternNeutral
	}
}

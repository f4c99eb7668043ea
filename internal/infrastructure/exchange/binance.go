package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vitos/crypto_ambush_bot/internal/domain"
)

// BinanceAdapter implements domain.MarketData over the Binance spot REST API
// plus the mini-ticker websocket stream for last prices.
type BinanceAdapter struct {
	baseURL string
	wsURL   string
	client  *http.Client

	mu     sync.Mutex
	wsConn *websocket.Conn
	prices map[string]float64
}

func NewBinanceAdapter(baseURL, wsURL string) *BinanceAdapter {
	return &BinanceAdapter{
		baseURL: baseURL,
		wsURL:   wsURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		prices:  make(map[string]float64),
	}
}

func (b *BinanceAdapter) sendRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	return body, nil
}

// GetCandles returns up to limit klines, oldest first. Binance already
// serves them in chronological order.
func (b *BinanceAdapter) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	path := fmt.Sprintf("/api/v3/klines?symbol=%s&interval=%s&limit=%d", symbol, interval, limit)
	resp, err := b.sendRequest(ctx, path)
	if err != nil {
		return nil, err
	}

	// Format per entry:
	// [openTime, open, high, low, close, volume, closeTime, quoteVolume, ...]
	var raw [][]interface{}
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, fmt.Errorf("binance kline decode: %w", err)
	}

	candles := make([]domain.Candle, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 8 {
			continue
		}

		openTime, ok := entry[0].(float64)
		if !ok {
			continue
		}
		closeTime, _ := entry[6].(float64)

		open := parseFloatField(entry[1])
		high := parseFloatField(entry[2])
		low := parseFloatField(entry[3])
		closePrice := parseFloatField(entry[4])
		volume := parseFloatField(entry[5])
		quoteVolume := parseFloatField(entry[7])

		candles = append(candles, domain.Candle{
			OpenTime:    int64(openTime),
			Open:        open,
			High:        high,
			Low:         low,
			Close:       closePrice,
			Volume:      volume,
			QuoteVolume: quoteVolume,
			CloseTime:   int64(closeTime),
		})
	}

	return candles, nil
}

// GetSymbols returns all symbols currently trading on the spot market.
func (b *BinanceAdapter) GetSymbols(ctx context.Context) ([]string, error) {
	resp, err := b.sendRequest(ctx, "/api/v3/exchangeInfo")
	if err != nil {
		return nil, err
	}

	var result struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("binance exchangeInfo decode: %w", err)
	}

	var symbols []string
	for _, s := range result.Symbols {
		if s.Status == "TRADING" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

// LastPrice returns the latest streamed price, or 0 before the first tick.
func (b *BinanceAdapter) LastPrice(symbol string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prices[symbol]
}

// ConnectWS opens the all-market mini-ticker stream and keeps the price
// cache warm until the connection drops.
func (b *BinanceAdapter) ConnectWS() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.wsConn != nil {
		return nil
	}

	c, _, err := websocket.DefaultDialer.Dial(b.wsURL+"/ws/!miniTicker@arr", nil)
	if err != nil {
		return err
	}
	b.wsConn = c

	go b.readLoop(c)

	return nil
}

func (b *BinanceAdapter) CloseWS() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wsConn != nil {
		b.wsConn.Close()
		b.wsConn = nil
	}
}

func (b *BinanceAdapter) readLoop(c *websocket.Conn) {
	defer func() {
		c.Close()
		b.mu.Lock()
		if b.wsConn == c {
			b.wsConn = nil
		}
		b.mu.Unlock()
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			log.Println("WS Read error:", err)
			return
		}

		var tickers []struct {
			Symbol string `json:"s"`
			Close  string `json:"c"`
		}
		if err := json.Unmarshal(message, &tickers); err != nil {
			// Control frames and subscription acks are not ticker arrays.
			continue
		}

		b.mu.Lock()
		for _, tk := range tickers {
			if price, err := strconv.ParseFloat(tk.Close, 64); err == nil && price > 0 {
				b.prices[tk.Symbol] = price
			}
		}
		b.mu.Unlock()
	}
}

func parseFloatField(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

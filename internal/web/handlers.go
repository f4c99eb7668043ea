package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"github.com/vitos/crypto_ambush_bot/internal/usecase"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":         "ok",
		"watchlist_size": len(s.watchlist.Entries()),
		"open_positions": len(s.monitor.Positions()),
	}
	if s.patternSvc != nil {
		status["pattern_service_healthy"] = s.patternSvc.Healthy(r.Context())
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.watchlist.Entries())
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	if !s.watchlist.Contains(symbol) {
		http.Error(w, "Symbol not watched", http.StatusNotFound)
		return
	}
	s.watchlist.Remove(r.Context(), symbol, domain.RemovalManual)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.monitor.Positions())
}

func (s *Server) handleOpenPosition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol     string  `json:"symbol"`
		Direction  string  `json:"direction"`
		EntryPrice float64 `json:"entry_price"`
		ATR        float64 `json:"atr"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Entry price defaults to the last streamed price when omitted.
	if body.EntryPrice == 0 {
		body.EntryPrice = s.market.LastPrice(body.Symbol)
	}

	pos, err := s.monitor.Open(r.Context(), body.Symbol, domain.Direction(body.Direction), body.EntryPrice, body.ATR, domain.IndicatorSnapshot{})
	switch {
	case errors.Is(err, usecase.ErrInvalidPosition):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, usecase.ErrPositionExists):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		s.logger.Error("Failed to open position", zap.Error(err))
		http.Error(w, "Failed to open position", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusCreated, pos)
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	pos, err := s.monitor.Close(r.Context(), id)
	switch {
	case errors.Is(err, usecase.ErrPositionNotFound):
		http.Error(w, "Position not found", http.StatusNotFound)
		return
	case err != nil:
		s.logger.Error("Failed to close position", zap.Error(err))
		http.Error(w, "Failed to close position", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, pos)
}

func (s *Server) handleScanSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	report, err := s.scanner.ScanSymbol(r.Context(), symbol)
	if err != nil {
		s.logger.Error("Manual scan failed", zap.String("symbol", symbol), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"github.com/vitos/crypto_ambush_bot/internal/usecase"
)

type Server struct {
	router     *http.ServeMux
	server     *http.Server
	scanner    *usecase.ScannerService
	watchlist  *usecase.WatchlistService
	monitor    *usecase.PositionMonitor
	market     domain.MarketData
	patternSvc domain.PatternService
	logger     *zap.Logger
}

func NewServer(
	port int,
	scanner *usecase.ScannerService,
	watchlist *usecase.WatchlistService,
	monitor *usecase.PositionMonitor,
	market domain.MarketData,
	patternSvc domain.PatternService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		scanner:    scanner,
		watchlist:  watchlist,
		monitor:    monitor,
		market:     market,
		patternSvc: patternSvc,
		logger:     logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Watchlist
	s.router.HandleFunc("GET /watchlist", s.handleWatchlist)
	s.router.HandleFunc("DELETE /watchlist/{symbol}", s.handleRemoveWatchlist)

	// Positions
	s.router.HandleFunc("GET /positions", s.handlePositions)
	s.router.HandleFunc("POST /positions", s.handleOpenPosition)
	s.router.HandleFunc("DELETE /positions/{id}", s.handleClosePosition)

	// Manual scan
	s.router.HandleFunc("GET /api/scan/{symbol}", s.handleScanSymbol)

	// Prometheus
	s.router.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

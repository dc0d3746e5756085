package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitos/solana_trade_bot/internal/usecase"
)

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	trading   *usecase.TradingService
	sniper    *usecase.SniperService
	copytrade *usecase.CopyTradeService
	market    *usecase.MarketDataService
	logger    *zap.Logger
}

func NewServer(
	port int,
	trading *usecase.TradingService,
	sniper *usecase.SniperService,
	copytrade *usecase.CopyTradeService,
	market *usecase.MarketDataService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		trading:   trading,
		sniper:    sniper,
		copytrade: copytrade,
		market:    market,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Orders
	s.router.HandleFunc("POST /api/orders", s.handlePlaceOrder)
	s.router.HandleFunc("GET /api/orders", s.handleListOrders)
	s.router.HandleFunc("GET /api/orders/{id}", s.handleGetOrder)
	s.router.HandleFunc("DELETE /api/orders/{id}", s.handleCancelOrder)

	// Wallet
	s.router.HandleFunc("GET /api/balance/{wallet}", s.handleGetBalance)
	s.router.HandleFunc("GET /api/portfolio/{wallet}", s.handleGetPortfolio)

	// Snipers
	s.router.HandleFunc("POST /api/snipers", s.handleStartSniper)
	s.router.HandleFunc("GET /api/snipers", s.handleListSnipers)
	s.router.HandleFunc("GET /api/snipers/{id}", s.handleSniperStatus)
	s.router.HandleFunc("DELETE /api/snipers/{id}", s.handleStopSniper)
	s.router.HandleFunc("GET /api/snipers/{id}/history", s.handleSniperHistory)
	s.router.HandleFunc("POST /api/snipers/{id}/targets", s.handleAddTarget)
	s.router.HandleFunc("DELETE /api/snipers/{id}/targets/{mint}", s.handleRemoveTarget)

	// Copy trading
	s.router.HandleFunc("POST /api/copytrades", s.handleStartCopyTrade)
	s.router.HandleFunc("GET /api/copytrades", s.handleListCopyTrades)
	s.router.HandleFunc("GET /api/copytrades/{id}", s.handleCopyTradeStatus)
	s.router.HandleFunc("DELETE /api/copytrades/{id}", s.handleStopCopyTrade)
	s.router.HandleFunc("GET /api/copytrades/{id}/history", s.handleCopyTradeHistory)
	s.router.HandleFunc("PUT /api/copytrades/{id}/trader", s.handleAddTrader)
	s.router.HandleFunc("DELETE /api/copytrades/{id}/trader", s.handleRemoveTrader)

	// Market data
	s.router.HandleFunc("GET /api/price/{mint}", s.handleGetPrice)
	s.router.HandleFunc("GET /api/token/{mint}", s.handleGetTokenInfo)
	s.router.HandleFunc("GET /api/market-data", s.handleMarketData)
	s.router.HandleFunc("GET /api/priority-fees", s.handlePriorityFees)

	// Price stream
	s.router.HandleFunc("GET /ws/prices", s.handlePriceStream)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)
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

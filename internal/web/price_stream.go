package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

const defaultStreamInterval = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handlePriceStream upgrades the connection and pushes quotes for the
// requested mint until the client goes away.
func (s *Server) handlePriceStream(w http.ResponseWriter, r *http.Request) {
	mint := r.URL.Query().Get("mint")
	if !domain.ValidAddress(mint) {
		http.Error(w, "Invalid token mint address", http.StatusBadRequest)
		return
	}

	interval := defaultStreamInterval
	if raw := r.URL.Query().Get("interval_ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 100 {
			http.Error(w, "interval_ms must be an integer >= 100", http.StatusBadRequest)
			return
		}
		interval = time.Duration(ms) * time.Millisecond
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// drain client frames so we notice the close handshake
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Info("Price stream opened",
		zap.String("mint", mint),
		zap.Duration("interval", interval))

	err = s.market.StreamPrices(ctx, mint, interval, func(quote *domain.PriceQuote) error {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(quote)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Price stream closed", zap.String("mint", mint), zap.Error(err))
	}
}

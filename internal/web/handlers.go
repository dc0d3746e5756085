package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, msg+": not found", http.StatusNotFound)
		return
	}
	s.logger.Error(msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.trading.PlaceOrder(r.Context(), &req)
	if err != nil {
		s.writeError(w, err, "Failed to place order")
		return
	}
	status := http.StatusOK
	if !result.Success {
		// validation and risk rejections
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, result)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.trading.GetOrders(r.Context(), orderFilterFromQuery(r.URL.Query()))
	if err != nil {
		s.writeError(w, err, "Failed to list orders")
		return
	}
	s.writeJSON(w, http.StatusOK, orders)
}

// orderFilterFromQuery reads the list filter. start_time and end_time accept
// unix seconds or RFC3339.
func orderFilterFromQuery(q url.Values) domain.OrderFilter {
	filter := domain.OrderFilter{
		WalletAddress: q.Get("wallet"),
		Status:        domain.OrderStatus(q.Get("status")),
		StartTime:     parseTimeParam(q.Get("start_time")),
		EndTime:       parseTimeParam(q.Get("end_time")),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	return filter
}

func parseTimeParam(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.trading.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "Failed to get order")
		return
	}
	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	result, err := s.trading.CancelOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "Failed to cancel order")
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, result)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.trading.GetBalance(r.Context(), r.PathValue("wallet"))
	if err != nil {
		s.writeError(w, err, "Failed to get balance")
		return
	}
	s.writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := s.trading.GetPortfolio(r.Context(), r.PathValue("wallet"))
	if err != nil {
		s.writeError(w, err, "Failed to get portfolio")
		return
	}
	s.writeJSON(w, http.StatusOK, portfolio)
}

func (s *Server) handleStartSniper(w http.ResponseWriter, r *http.Request) {
	var cfg domain.SniperConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := s.sniper.StartSniper(r.Context(), &cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"sniper_id": id})
}

func (s *Server) handleListSnipers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sniper.ListSnipers())
}

func (s *Server) handleSniperStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.sniper.GetStatus(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "Failed to get sniper status")
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStopSniper(w http.ResponseWriter, r *http.Request) {
	if err := s.sniper.StopSniper(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err, "Failed to stop sniper")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSniperHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.sniper.GetHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "Failed to get sniper history")
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TokenMint string `json:"token_mint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.sniper.AddTarget(r.PathValue("id"), body.TokenMint); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, err, "Failed to add target")
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveTarget(w http.ResponseWriter, r *http.Request) {
	if err := s.sniper.RemoveTarget(r.PathValue("id"), r.PathValue("mint")); err != nil {
		s.writeError(w, err, "Failed to remove target")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartCopyTrade(w http.ResponseWriter, r *http.Request) {
	var cfg domain.CopyTradeConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := s.copytrade.StartCopyTrade(r.Context(), &cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"copy_trade_id": id})
}

func (s *Server) handleListCopyTrades(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.copytrade.ListCopyTrades())
}

func (s *Server) handleCopyTradeStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.copytrade.GetStatus(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "Failed to get copy-trade status")
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStopCopyTrade(w http.ResponseWriter, r *http.Request) {
	if err := s.copytrade.StopCopyTrade(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err, "Failed to stop copy trading")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopyTradeHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.copytrade.GetHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "Failed to get copy-trade history")
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAddTrader(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceWallet         string  `json:"source_wallet"`
		AllocationPercentage float64 `json:"allocation_percentage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := s.copytrade.AddTrader(r.Context(), r.PathValue("id"), body.SourceWallet, body.AllocationPercentage)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, err, "Failed to add trader")
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveTrader(w http.ResponseWriter, r *http.Request) {
	if err := s.copytrade.RemoveTrader(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err, "Failed to remove trader")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	quote, err := s.market.GetTokenPrice(r.Context(), r.PathValue("mint"))
	if err != nil {
		if errors.Is(err, domain.ErrPriceUnavailable) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		s.writeError(w, err, "Failed to get price")
		return
	}
	s.writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleGetTokenInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.market.GetTokenInfo(r.Context(), r.PathValue("mint"))
	if err != nil {
		s.writeError(w, err, "Failed to get token info")
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("mints")
	if raw == "" {
		http.Error(w, "mints query parameter is required", http.StatusBadRequest)
		return
	}

	data, err := s.market.GetMarketData(r.Context(), strings.Split(raw, ","))
	if err != nil {
		s.writeError(w, err, "Failed to get market data")
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handlePriorityFees(w http.ResponseWriter, r *http.Request) {
	fees, err := s.market.GetPriorityFees(r.Context())
	if err != nil {
		s.writeError(w, err, "Failed to get priority fees")
		return
	}
	s.writeJSON(w, http.StatusOK, fees)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"snipers":     len(s.sniper.ListSnipers()),
		"copy_trades": len(s.copytrade.ListCopyTrades()),
	})
}

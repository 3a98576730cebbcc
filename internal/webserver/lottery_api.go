package webserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nantokaworks/ticket-lottery/internal/history"
	"github.com/nantokaworks/ticket-lottery/internal/lottery"
	"github.com/nantokaworks/ticket-lottery/internal/shared/logger"
	"go.uber.org/zap"
)

type initializeRequest struct {
	TicketPrice     uint64 `json:"ticket_price"`
	DurationSeconds uint64 `json:"duration_seconds"`
}

type createOrderRequest struct {
	RoundID     uint64 `json:"round_id"`
	TicketCount uint32 `json:"ticket_count"`
}

type verifyOrderRequest struct {
	RoundID     uint64 `json:"round_id"`
	TicketCount uint32 `json:"ticket_count"`
	AmountPaid  uint64 `json:"amount_paid"`
	Block       uint64 `json:"block"`
	Memo        uint64 `json:"memo"`
}

func registerLotteryRoutes(mux *http.ServeMux, svc *lottery.Service) {
	mux.HandleFunc("POST /api/lottery/initialize", corsMiddleware(handleInitialize(svc)))
	mux.HandleFunc("POST /api/lottery/rounds", corsMiddleware(handleStartRound(svc)))
	mux.HandleFunc("GET /api/lottery/rounds", corsMiddleware(handleGetRounds(svc)))
	mux.HandleFunc("GET /api/lottery/rounds/{id}", corsMiddleware(handleGetRound(svc)))
	mux.HandleFunc("POST /api/lottery/rounds/{id}/close", corsMiddleware(handleCloseRound(svc)))
	mux.HandleFunc("POST /api/lottery/rounds/{id}/claim", corsMiddleware(handleClaim(svc)))
	mux.HandleFunc("DELETE /api/lottery/rounds/{id}", corsMiddleware(handleDeleteRound(svc)))
	mux.HandleFunc("GET /api/lottery/config", corsMiddleware(handleGetConfig(svc)))
	mux.HandleFunc("POST /api/lottery/orders", corsMiddleware(handleCreateOrder(svc)))
	mux.HandleFunc("POST /api/lottery/orders/verify", corsMiddleware(handleVerifyOrder(svc)))
	mux.HandleFunc("GET /api/lottery/orders", corsMiddleware(handleGetOrders(svc)))
	mux.HandleFunc("GET /api/lottery/orders/pending", corsMiddleware(handleGetPendingOrders(svc)))
	mux.HandleFunc("GET /api/lottery/history", corsMiddleware(handleGetHistory))
}

func handleInitialize(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req initializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		duration := time.Duration(req.DurationSeconds) * time.Second
		if err := svc.Initialize(req.TicketPrice, duration); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ticket_price":     req.TicketPrice,
			"duration_seconds": req.DurationSeconds,
		})
	}
}

func handleStartRound(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		round, err := svc.StartRound()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, round)
	}
}

func handleGetRounds(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rounds, err := svc.Rounds()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rounds)
	}
}

func handleGetRound(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := roundID(w, r)
		if !ok {
			return
		}
		round, err := svc.Round(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, round)
	}
}

func handleCloseRound(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := roundID(w, r)
		if !ok {
			return
		}
		msg, err := svc.CloseRound(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": msg})
	}
}

func handleClaim(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := roundID(w, r)
		if !ok {
			return
		}
		msg, err := svc.ClaimIfWinner(r.Context(), id, callerAccount(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"winner": true, "message": msg})
	}
}

func handleDeleteRound(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := roundID(w, r)
		if !ok {
			return
		}
		if err := svc.DeleteRound(id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]uint64{"round_id": id})
	}
}

func handleGetConfig(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := svc.Configuration()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func handleCreateOrder(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		order, err := svc.CreateOrder(callerAccount(r), req.RoundID, req.TicketCount)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

func handleVerifyOrder(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		order, err := svc.VerifyAndRegister(r.Context(), callerAccount(r),
			req.RoundID, req.TicketCount, req.AmountPaid, req.Block, req.Memo)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

func handleGetOrders(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.CompletedOrders(r.URL.Query().Get("account"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

func handleGetPendingOrders(svc *lottery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.PendingOrders()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

func handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	draws, err := history.ListDraws(limit)
	if err != nil {
		logger.Error("Failed to list draw history", zap.Error(err))
		http.Error(w, "Failed to get draw history", http.StatusInternalServerError)
		return
	}
	payouts, err := history.ListPayouts(limit)
	if err != nil {
		logger.Error("Failed to list payout history", zap.Error(err))
		http.Error(w, "Failed to get payout history", http.StatusInternalServerError)
		return
	}
	settled, err := history.ListSettledOrders(r.URL.Query().Get("account"), limit)
	if err != nil {
		logger.Error("Failed to list settled orders", zap.Error(err))
		http.Error(w, "Failed to get settled orders", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"draws":          draws,
		"payouts":        payouts,
		"settled_orders": settled,
	})
}

func roundID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid round id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

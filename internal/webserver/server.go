package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nantokaworks/ticket-lottery/internal/lottery"
	"github.com/nantokaworks/ticket-lottery/internal/shared/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var httpServer *http.Server

// wsBroadcaster implements lottery.Broadcaster over the WebSocket hub.
type wsBroadcaster struct{}

func (wsBroadcaster) BroadcastEvent(eventType string, payload any) {
	BroadcastWSMessage(eventType, payload)
}

// corsMiddleware adds CORS headers to HTTP handlers.
func corsMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Account-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler(w, r)
	}
}

// StartWebServer wires the routes and starts listening. The lottery
// service's events are fanned out to WebSocket clients from here on.
func StartWebServer(port int, svc *lottery.Service) error {
	svc.SetBroadcaster(wsBroadcaster{})
	StartWSHub()

	mux := http.NewServeMux()
	registerLotteryRoutes(mux, svc)

	mux.HandleFunc("/ws", handleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Web server stopped unexpectedly", zap.Error(err))
		}
	}()

	logger.Info("Web server started", zap.Int("port", port))
	return nil
}

// Shutdown stops the web server gracefully.
func Shutdown() {
	if httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("Web server shutdown error", zap.Error(err))
	}
	httpServer = nil
}

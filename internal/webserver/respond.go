package webserver

import (
	"encoding/json"
	"net/http"

	"github.com/nantokaworks/ticket-lottery/internal/lottery"
	"github.com/nantokaworks/ticket-lottery/internal/shared/logger"
	"go.uber.org/zap"
)

type errorBody struct {
	Kind    lottery.Kind `json:"kind"`
	Message string       `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a lottery error kind to an HTTP status and writes
// the tagged error body the UI consumes.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := lottery.KindOf(err)

	var status int
	switch kind {
	case lottery.KindNotFound:
		status = http.StatusNotFound
	case lottery.KindConfigError, lottery.KindStateError, lottery.KindOrderError:
		status = http.StatusConflict
	case lottery.KindPaymentError, lottery.KindPaymentFailed:
		status = http.StatusPaymentRequired
	case lottery.KindInvalidInput:
		status = http.StatusBadRequest
	case lottery.KindNotWinner:
		// An informational non-match, not a failure.
		writeJSON(w, http.StatusOK, map[string]any{
			"winner":  false,
			"message": err.Error(),
		})
		return
	default:
		logger.Error("Internal error handling request", zap.Error(err))
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, map[string]any{
		"error": errorBody{Kind: kind, Message: err.Error()},
	})
}

// callerAccount extracts the caller identity the hosting layer attaches to
// every request.
func callerAccount(r *http.Request) string {
	return r.Header.Get("X-Account-ID")
}

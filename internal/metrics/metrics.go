package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_order_requests_total",
			Help: "Total ticket order creations by result",
		},
		[]string{"result"},
	)

	verifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_verify_requests_total",
			Help: "Total payment verifications by result",
		},
		[]string{"result"},
	)

	verifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lottery_verify_duration_ms",
			Help:    "Payment verification duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)

	claimTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_claim_requests_total",
			Help: "Total winner claims by outcome",
		},
		[]string{"outcome"},
	)

	ticketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lottery_tickets_sold_total",
			Help: "Total tickets credited across all rounds",
		},
	)

	prizePool = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lottery_prize_pool",
			Help: "Current prize pool balance",
		},
	)
)

// RecordOrder records an order-creation attempt.
// result should be "success" or "fail".
func RecordOrder(result string) {
	if result != "success" {
		result = "fail"
	}
	orderTotal.WithLabelValues(result).Inc()
}

// RecordVerification records a payment verification attempt and its duration.
func RecordVerification(result string, started time.Time) {
	if result != "success" {
		result = "fail"
	}
	verifyTotal.WithLabelValues(result).Inc()
	verifyDuration.WithLabelValues(result).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordClaim records a claim attempt.
// outcome: "won" | "not_winner" | "fail"
func RecordClaim(outcome string) {
	switch outcome {
	case "won", "not_winner":
	default:
		outcome = "fail"
	}
	claimTotal.WithLabelValues(outcome).Inc()
}

// AddTicketsSold bumps the sold-tickets counter by n.
func AddTicketsSold(n uint64) {
	ticketsSold.Add(float64(n))
}

// SetPrizePool publishes the current prize pool balance.
func SetPrizePool(v uint64) {
	prizePool.Set(float64(v))
}

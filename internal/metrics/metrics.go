// Package metrics declares the prometheus collectors of the service.
package metrics

import (
	"ticketflow/internal/domain" // Error kinds

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketflow_reservations_total",
			Help: "Reservation attempts by result",
		},
		[]string{"result"},
	)

	ticketsReserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketflow_tickets_reserved_total",
			Help: "Tickets created by committed reservations",
		},
	)

	settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketflow_settlements_total",
			Help: "Settlement attempts by result",
		},
		[]string{"result"},
	)

	walletTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketflow_wallet_transactions_total",
			Help: "Wallet ledger operations by type and result",
		},
		[]string{"type", "result"},
	)

	reclaimedOrders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketflow_reclaimed_orders_total",
			Help: "Pending orders processed by the reclaim sweeper",
		},
		[]string{"result"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticketflow_sweep_duration_seconds",
			Help:    "Duration of reclaim sweeps",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)
)

// ObserveReservation records a reservation outcome
func ObserveReservation(err error, tickets int) {
	reservations.WithLabelValues(domain.Kind(err)).Inc()
	if err == nil {
		ticketsReserved.Add(float64(tickets))
	}
}

// ObserveSettlement records a settlement outcome
func ObserveSettlement(err error) {
	settlements.WithLabelValues(domain.Kind(err)).Inc()
}

// ObserveWalletTransaction records a wallet ledger outcome
func ObserveWalletTransaction(txType domain.TransactionType, err error) {
	walletTransactions.WithLabelValues(string(txType), domain.Kind(err)).Inc()
}

// ObserveReclaim records one order handled by the sweeper
func ObserveReclaim(err error) {
	reclaimedOrders.WithLabelValues(domain.Kind(err)).Inc()
}

// ObserveSweep records the duration of one sweep in seconds
func ObserveSweep(seconds float64) {
	sweepDuration.Observe(seconds)
}

// Package metrics provides the Prometheus collectors of the sweeper.
package metrics

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

const namespace = "sweeper"

// Cycle outcomes.
const (
	OutcomeBroadcast  = "broadcast"
	OutcomeIdle       = "idle"
	OutcomeTerminated = "terminated"
	OutcomeFailed     = "failed"
)

// Transaction outcomes.
const (
	TxSent              = "sent"
	TxInsufficientFunds = "insufficient_funds"
	TxFailed            = "failed"
)

// Metrics holds all Prometheus collectors of the sweeper.
type Metrics struct {
	CyclesTotal              *prometheus.CounterVec
	TransactionsTotal        *prometheus.CounterVec
	TriggersTotal            *prometheus.CounterVec
	TokensSkippedTotal       *prometheus.CounterVec
	GasEstimateFallbackTotal prometheus.Counter

	HotBalanceEther    prometheus.Gauge
	GasCapGwei         prometheus.Gauge
	MaxFeePerGasGwei   prometheus.Gauge
	LastCycleTimestamp prometheus.Gauge
	CycleDuration      prometheus.Histogram
}

// New registers all collectors with reg. A nil reg registers with the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of sweep cycles by outcome",
		}, []string{"outcome"}),
		TransactionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Total number of broadcast transactions by asset kind and outcome",
		}, []string{"kind", "outcome"}),
		TriggersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Total number of wake-ups by source",
		}, []string{"source"}),
		TokensSkippedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_skipped_total",
			Help:      "Total number of token transfers skipped because gas was not affordable",
		}, []string{"symbol"}),
		GasEstimateFallbackTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gas_estimate_fallback_total",
			Help:      "Total number of gas estimations replaced by the fallback gas limit",
		}),
		HotBalanceEther: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hot_balance_ether",
			Help:      "Native balance of the hot wallet seen by the last cycle",
		}),
		GasCapGwei: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gas_cap_gwei",
			Help:      "Current max fee cap in gwei",
		}),
		MaxFeePerGasGwei: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_fee_per_gas_gwei",
			Help:      "Max fee per gas used by the last cycle",
		}),
		LastCycleTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last sweep cycle finished",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of sweep cycles",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(outcome string, started time.Time) {
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(time.Since(started).Seconds())
	m.LastCycleTimestamp.SetToCurrentTime()
}

// SetWei sets g to a wei amount expressed in units of 10^exp wei.
func SetWei(g prometheus.Gauge, wei *big.Int, exp int32) {
	if wei == nil {
		return
	}

	f, _ := decimal.NewFromBigInt(wei, -exp).Float64()
	g.Set(f)
}

package stats

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "escrow"

// LedgerMetrics collects prometheus metrics out of the ledger events it is
// notified about. It satisfies the publisher interface so that it can be
// plugged next to the webhooks.
type LedgerMetrics struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	amounts  *prometheus.CounterVec
	fees     *prometheus.CounterVec
}

func NewLedgerMetrics() *LedgerMetrics {
	registry := prometheus.NewRegistry()
	m := &LedgerMetrics{
		registry: registry,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Number of ledger events by topic.",
		}, []string{"topic"}),
		amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_amount_total",
			Help:      "Sum of the principal of the trades by event topic.",
		}, []string{"topic"}),
		fees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_fee_total",
			Help:      "Sum of the fees of the trades by event topic.",
		}, []string{"topic"}),
	}
	registry.MustRegister(
		m.events, m.amounts, m.fees,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Publish accounts for an event. Payloads carrying a trade also increase
// the amount and fee counters.
func (m *LedgerMetrics) Publish(topic, message string) error {
	m.events.WithLabelValues(topic).Inc()

	var trade struct {
		Amount *decimal.Decimal `json:"amount"`
		Fee    *decimal.Decimal `json:"fee"`
	}
	if err := json.Unmarshal([]byte(message), &trade); err != nil {
		return nil
	}
	if trade.Amount != nil {
		m.amounts.WithLabelValues(topic).Add(trade.Amount.InexactFloat64())
	}
	if trade.Fee != nil {
		m.fees.WithLabelValues(topic).Add(trade.Fee.InexactFloat64())
	}
	return nil
}

// RegisterGaugeFunc exposes the value returned by fn, evaluated at every
// scrape.
func (m *LedgerMetrics) RegisterGaugeFunc(name, help string, fn func() float64) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

func (m *LedgerMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the collected metrics in the prometheus exposition format.
func (m *LedgerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

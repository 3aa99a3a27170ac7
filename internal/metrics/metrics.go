package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess   = "success"
	ResultFailed    = "failed"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
	ResultNotFound  = "not_found"
)

// Metrics holds the shop's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	payments     *prometheus.CounterVec
	invoices     *prometheus.CounterVec
	refunds      *prometheus.CounterVec
	ledger       *prometheus.CounterVec
	broadcasts   *prometheus.CounterVec
	outbox       *prometheus.CounterVec
	exportedRows *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "starshop",
			Name:      "payments_total",
			Help:      "Successful payment notifications by outcome.",
		}, []string{"result"}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "starshop",
			Name:      "invoices_total",
			Help:      "Invoices sent to users by outcome.",
		}, []string{"result"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "starshop",
			Name:      "refunds_total",
			Help:      "Refund attempts by outcome.",
		}, []string{"result"}),
		ledger: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "starshop",
			Name:      "ledger_entries_total",
			Help:      "Ledger entries appended by kind.",
		}, []string{"kind"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "starshop",
			Name:      "broadcast_messages_total",
			Help:      "Broadcast deliveries by outcome.",
		}, []string{"result"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "starshop",
			Name:      "outbox_messages_total",
			Help:      "Outbox deliveries by outcome.",
		}, []string{"result"}),
		exportedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "starshop",
			Name:      "export_rows_total",
			Help:      "Rows copied to the reporting database by table.",
		}, []string{"table"}),
	}
	if reg != nil {
		reg.MustRegister(m.payments, m.invoices, m.refunds, m.ledger, m.broadcasts, m.outbox, m.exportedRows)
	}
	return m
}

func (m *Metrics) Payment(result string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(result).Inc()
}

func (m *Metrics) Invoice(result string) {
	if m == nil {
		return
	}
	m.invoices.WithLabelValues(result).Inc()
}

func (m *Metrics) Refund(result string) {
	if m == nil {
		return
	}
	m.refunds.WithLabelValues(result).Inc()
}

func (m *Metrics) LedgerEntry(kind string) {
	if m == nil {
		return
	}
	m.ledger.WithLabelValues(kind).Inc()
}

func (m *Metrics) Broadcast(result string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(result).Inc()
}

func (m *Metrics) Outbox(result string) {
	if m == nil {
		return
	}
	m.outbox.WithLabelValues(result).Inc()
}

func (m *Metrics) ExportedRows(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.exportedRows.WithLabelValues(table).Add(float64(n))
}

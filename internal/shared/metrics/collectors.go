package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ledger agrupa as métricas do pipeline de aposta
type Ledger struct {
	Placements        *prometheus.CounterVec // por resultado (ok, insufficient_funds, ...)
	PlacementLatency  prometheus.Histogram
	IntegrityFailures prometheus.Counter
}

// NewLedger cria (e registra, se reg != nil) as métricas do ledger
func NewLedger(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		Placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bet_placements_total",
			Help: "tentativas de aposta por resultado",
		}, []string{"result"}),
		PlacementLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bet_placement_duration_seconds",
			Help:    "latência do place_bet até commit ou falha",
			Buckets: prometheus.DefBuckets,
		}),
		IntegrityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_integrity_failures_total",
			Help: "saldos que falharam na autenticação (possível adulteração ou chave errada)",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Placements, m.PlacementLatency, m.IntegrityFailures)
	}
	return m
}

// Fraud agrupa as métricas do monitor de fraude
type Fraud struct {
	Inspected *prometheus.CounterVec // por resultado: clean, flagged, undetermined
	Flags     *prometheus.CounterVec // por regra
	Errors    *prometheus.CounterVec // por estágio
	Dropped   prometheus.Counter
}

// NewFraud cria (e registra, se reg != nil) as métricas do monitor
func NewFraud(reg prometheus.Registerer) *Fraud {
	m := &Fraud{
		Inspected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_inspections_total",
			Help: "apostas inspecionadas por resultado",
		}, []string{"outcome"}),
		Flags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_flags_total",
			Help: "sinalizações por regra",
		}, []string{"rule"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_errors_total",
			Help: "erros do monitor por estágio",
		}, []string{"stage"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fraud_tasks_dropped_total",
			Help: "inspeções descartadas por fila cheia",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Inspected, m.Flags, m.Errors, m.Dropped)
	}
	return m
}

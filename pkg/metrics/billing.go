package metrics

import "github.com/prometheus/client_golang/prometheus"

// BillingMetrics tracks invoicing run outcomes.
type BillingMetrics struct {
	generated *prometheus.CounterVec
	completed prometheus.Counter
	failures  *prometheus.CounterVec
}

// NewBillingMetrics registers the invoicing metrics on reg.
func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	generated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invoices_generated_total",
		Help:      "Invoices generated from recurring profiles.",
	}, []string{"frequency", "trigger"})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recurring_profiles_completed_total",
		Help:      "Recurring profiles that reached the end of their schedule.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invoice_generation_failures_total",
		Help:      "Invoice generation attempts that failed.",
	}, []string{"reason"})
	reg.MustRegister(generated, completed, failures)
	return &BillingMetrics{
		generated: generated,
		completed: completed,
		failures:  failures,
	}
}

// IncGenerated counts one invoice for the profile frequency and trigger (cron or api).
func (b *BillingMetrics) IncGenerated(frequency, trigger string) {
	if b == nil || b.generated == nil {
		return
	}
	b.generated.WithLabelValues(normalizeLabel(frequency), normalizeLabel(trigger)).Inc()
}

// IncCompleted counts a profile moving to completed.
func (b *BillingMetrics) IncCompleted() {
	if b == nil || b.completed == nil {
		return
	}
	b.completed.Inc()
}

// IncFailure counts a failed generation attempt by reason.
func (b *BillingMetrics) IncFailure(reason string) {
	if b == nil || b.failures == nil {
		return
	}
	b.failures.WithLabelValues(normalizeLabel(reason)).Inc()
}

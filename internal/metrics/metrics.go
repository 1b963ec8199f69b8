// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts the business events worth graphing. Handlers call it
// directly; a nil-safe no-op is not provided, construct one per server.
type Collector struct {
	loginRequests   prometheus.Counter
	loginVerified   prometheus.Counter
	loginRejected   *prometheus.CounterVec
	exports         *prometheus.CounterVec
	quotaRejections prometheus.Counter
	documents       prometheus.Counter
	paymentsPaid    prometheus.Counter
}

// NewCollector registers the application metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maitremot_login_requests_total",
			Help: "Magic link login requests accepted.",
		}),
		loginVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maitremot_login_verified_total",
			Help: "Magic link tokens successfully exchanged for a session.",
		}),
		loginRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maitremot_login_rejected_total",
			Help: "Magic link verifications rejected, by reason.",
		}, []string{"reason"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maitremot_exports_total",
			Help: "Document exports served, by tier.",
		}, []string{"tier"}),
		quotaRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maitremot_quota_rejections_total",
			Help: "Guest exports refused because the free quota was exhausted.",
		}),
		documents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maitremot_documents_generated_total",
			Help: "Documents generated.",
		}),
		paymentsPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maitremot_payments_paid_total",
			Help: "Checkout sessions observed as paid.",
		}),
	}

	reg.MustRegister(
		c.loginRequests,
		c.loginVerified,
		c.loginRejected,
		c.exports,
		c.quotaRejections,
		c.documents,
		c.paymentsPaid,
	)

	return c
}

func (c *Collector) RecordLoginRequest() {
	c.loginRequests.Inc()
}

func (c *Collector) RecordLoginVerified() {
	c.loginVerified.Inc()
}

// RecordLoginRejected counts a failed verification; reason is one of
// unknown, used, expired, lapsed.
func (c *Collector) RecordLoginRejected(reason string) {
	c.loginRejected.WithLabelValues(reason).Inc()
}

// RecordExport counts a served export; tier is guest or pro.
func (c *Collector) RecordExport(tier string) {
	c.exports.WithLabelValues(tier).Inc()
}

func (c *Collector) RecordQuotaRejection() {
	c.quotaRejections.Inc()
}

func (c *Collector) RecordDocumentGenerated() {
	c.documents.Inc()
}

func (c *Collector) RecordPaymentPaid() {
	c.paymentsPaid.Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

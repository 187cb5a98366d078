package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics tracks storefront activity across checkout and the assistant.
type CommerceMetrics struct {
	ordersCreated    prometheus.Counter
	checkoutFailures *prometheus.CounterVec
	assistantCalls   *prometheus.CounterVec
}

// NewCommerceMetrics registers the storefront metrics on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders committed through checkout.",
	})
	checkoutFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Checkout attempts that did not produce an order.",
	}, []string{"reason"})
	assistantCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_requests_total",
		Help: "Assistant invocations by flow.",
	}, []string{"flow"})
	reg.MustRegister(ordersCreated, checkoutFailures, assistantCalls)
	return &CommerceMetrics{
		ordersCreated:    ordersCreated,
		checkoutFailures: checkoutFailures,
		assistantCalls:   assistantCalls,
	}
}

// IncOrderCreated increments the committed order counter.
func (c *CommerceMetrics) IncOrderCreated() {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.Inc()
}

// IncCheckoutFailure increments the failure counter for the given reason.
func (c *CommerceMetrics) IncCheckoutFailure(reason string) {
	if c == nil || c.checkoutFailures == nil {
		return
	}
	c.checkoutFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncAssistantRequest increments the assistant counter for the named flow.
func (c *CommerceMetrics) IncAssistantRequest(flow string) {
	if c == nil || c.assistantCalls == nil {
		return
	}
	c.assistantCalls.WithLabelValues(normalizeLabel(flow)).Inc()
}

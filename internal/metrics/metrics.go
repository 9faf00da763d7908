package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons for RegistrationsRejected.
const (
	ReasonDuplicateEmail = "duplicate_email"
	ReasonInvalidFile    = "invalid_file"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	RegistrationsCreated  prometheus.Counter
	AttachmentsStored     prometheus.Counter
	RegistrationsRejected *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "registration_created_total",
			Help: "Total number of registrations created",
		}),
		AttachmentsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "registration_attachments_stored_total",
			Help: "Total number of PDF attachments written to the upload directory",
		}),
		RegistrationsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_rejected_total",
			Help: "Total number of registrations rejected by validation",
		}, []string{"reason"}),
	}
}

// IncrementCreated increments the created counter. Safe on a nil receiver.
func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.RegistrationsCreated.Inc()
}

// IncrementAttachmentsStored increments the stored attachments counter.
func (m *Metrics) IncrementAttachmentsStored() {
	if m == nil {
		return
	}
	m.AttachmentsStored.Inc()
}

// IncrementRejected increments the rejection counter for reason.
func (m *Metrics) IncrementRejected(reason string) {
	if m == nil {
		return
	}
	m.RegistrationsRejected.WithLabelValues(reason).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics tracks auth operations, credential fallback and session store health.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AuthOperations     *prometheus.CounterVec
	CredentialAttempts *prometheus.CounterVec
	StoreFailures      *prometheus.CounterVec
	StateTransitions   *prometheus.CounterVec
}

// New registers the metrics on reg. Pass prometheus.DefaultRegisterer in binaries
// and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuthOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_auth_operations_total",
			Help: "Auth operations by name and outcome",
		}, []string{"operation", "outcome"}),
		CredentialAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_idp_credential_attempts_total",
			Help: "Token exchange attempts per credential set and outcome",
		}, []string{"credential", "outcome"}),
		StoreFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_session_store_failures_total",
			Help: "Session store failures by operation",
		}, []string{"operation"}),
		StateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cafe_auth_state_transitions_total",
			Help: "Auth state transitions by target state",
		}, []string{"state"}),
	}
}

// ObserveOperation records the outcome of an auth operation.
func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.AuthOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveCredentialAttempt records one token exchange attempt.
func (m *Metrics) ObserveCredentialAttempt(credential string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.CredentialAttempts.WithLabelValues(credential, outcome).Inc()
}

// IncStoreFailure records a failed session store operation.
func (m *Metrics) IncStoreFailure(operation string) {
	if m == nil {
		return
	}
	m.StoreFailures.WithLabelValues(operation).Inc()
}

// IncTransition records entry into a state.
func (m *Metrics) IncTransition(state string) {
	if m == nil {
		return
	}
	m.StateTransitions.WithLabelValues(state).Inc()
}

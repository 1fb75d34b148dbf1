package saga

// State is the per-tenant onboarding process state, distinct from the
// tenant's own lifecycle status: its transitions are driven by asynchronous,
// independently delivered signals that may arrive duplicated or out of order.
//
// ACTIVATED and FAILED are terminal. A tenant-level retry
// (TenantLifecycle.ResetForRetry) starts a fresh saga instance rather than
// resurrecting a FAILED one.
type State string

const (
	StateRegistered          State = "REGISTERED"
	StateSubscriptionActive  State = "SUBSCRIPTION_ACTIVE"
	StateTenantProvisioned   State = "TENANT_PROVISIONED"
	StatePrimaryCampusCreate State = "PRIMARY_CAMPUS_CREATED"
	StateAdminCreated        State = "ADMIN_CREATED"
	StateActivated           State = "ACTIVATED"
	StateFailed              State = "FAILED"
)

func (s State) IsTerminal() bool {
	return s == StateActivated || s == StateFailed
}

// ParseState validates a state read back from persistence.
func ParseState(raw string) (State, bool) {
	switch State(raw) {
	case StateRegistered, StateSubscriptionActive, StateTenantProvisioned,
		StatePrimaryCampusCreate, StateAdminCreated, StateActivated, StateFailed:
		return State(raw), true
	}
	return "", false
}

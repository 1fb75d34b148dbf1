package models

import (
	dErrors "synergy/pkg/domain-errors"
)

// Status is the tenant lifecycle state.
//
//	PENDING      registered, provisioning not yet started
//	PROVISIONING database and schema being created
//	ACTIVE       fully operational
//	SUSPENDED    subscription lapsed or manual admin action
//	FAILED       provisioning failed, admin must intervene or retry
//	TERMINATED   permanently closed, data retained per retention policy
//
// Transitions are enforced here, not in application logic.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusProvisioning Status = "PROVISIONING"
	StatusActive       Status = "ACTIVE"
	StatusSuspended    Status = "SUSPENDED"
	StatusFailed       Status = "FAILED"
	StatusTerminated   Status = "TERMINATED"
)

// allowedTransitions is the single source of truth for legal lifecycle edges.
// TERMINATED has no outgoing edges.
var allowedTransitions = map[Status][]Status{
	StatusPending:      {StatusProvisioning, StatusFailed},
	StatusProvisioning: {StatusActive, StatusFailed},
	StatusActive:       {StatusSuspended, StatusTerminated},
	StatusSuspended:    {StatusActive, StatusTerminated},
	StatusFailed:       {StatusPending},
	StatusTerminated:   {},
}

// CanTransitionTo reports whether the edge from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// TransitionTo validates the edge and returns the new status, or a
// CodeInvalidState error naming source and attempted target.
func (s Status) TransitionTo(next Status) (Status, error) {
	if !s.CanTransitionTo(next) {
		return s, dErrors.Newf(dErrors.CodeInvalidState, "cannot transition tenant from %s to %s", s, next)
	}
	return next, nil
}

// ParseStatus validates a status read back from persistence.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusProvisioning, StatusActive, StatusSuspended, StatusFailed, StatusTerminated:
		return Status(raw), nil
	}
	return "", dErrors.Newf(dErrors.CodeInternal, "unknown tenant status %q", raw)
}

func (s Status) IsTerminal() bool    { return s == StatusTerminated }
func (s Status) IsOperational() bool { return s == StatusActive }

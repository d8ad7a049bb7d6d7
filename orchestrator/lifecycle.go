// Package orchestrator drives the account lifecycle: it classifies
// incoming events, derives the current state from directory tags, and
// runs the procedures that move an account toward removal.
package orchestrator

import (
	"fmt"

	"github.com/qmuntal/stateless"

	"github.com/orgfoundry/account-controller/directory"
)

// Lifecycle states. Tags are the only durable record; the state is
// re-derived from a tag snapshot on every invocation.
const (
	StateRequested                    = "Requested"
	StateCreated                      = "Created"
	StateOwnerAssigned                = "OwnerAssigned"
	StateActive                       = "Active"
	StateMarkedForDeletion            = "MarkedForDeletion"
	StatePasswordResetInFlight        = "PasswordResetInFlight"
	StateIdentityVerificationInFlight = "IdentityVerificationInFlight"
	StateClosureInFlight              = "ClosureInFlight"
	StateRemovedFromOrgPendingGrace   = "RemovedFromOrgPendingGrace"
	StateRemoved                      = "Removed"
)

// Lifecycle triggers.
const (
	TriggerAccountCreated     = "AccountCreated"
	TriggerOwnerAssigned      = "OwnerAssigned"
	TriggerSSOGranted         = "SSOGranted"
	TriggerMarkedForDeletion  = "MarkedForDeletion"
	TriggerResetRequested     = "ResetRequested"
	TriggerResetCompleted     = "ResetCompleted"
	TriggerVerificationPassed = "VerificationPassed"
	TriggerClosureRecorded    = "ClosureRecorded"
	TriggerRemovalScheduled   = "RemovalScheduled"
	TriggerRemovedFromOrg     = "RemovedFromOrg"

	triggerInvalid = "InvalidTrigger"
)

// StateFromTags derives the lifecycle state from a tag snapshot.
func StateFromTags(tags directory.Tags) string {
	if _, ok := tags.ScheduledRemovalTime(); ok {
		return StateRemovedFromOrgPendingGrace
	}

	if _, ok := tags.DeletionTime(); ok {
		return StateClosureInFlight
	}

	if tags.MarkedForDeletion() {
		return StateMarkedForDeletion
	}

	if tags.SSOCreationComplete() {
		return StateActive
	}

	if tags.OwnerGUID() != "" {
		return StateOwnerAssigned
	}

	return StateCreated
}

// newLifecycleMachine wires the legal transitions starting from the
// given state.
func newLifecycleMachine(initial string) *stateless.StateMachine {
	machine := stateless.NewStateMachine(initial)

	machine.Configure(StateRequested).
		Permit(TriggerAccountCreated, StateCreated)

	machine.Configure(StateCreated).
		Permit(TriggerOwnerAssigned, StateOwnerAssigned).
		Permit(TriggerMarkedForDeletion, StateMarkedForDeletion)

	machine.Configure(StateOwnerAssigned).
		Permit(TriggerSSOGranted, StateActive).
		Permit(TriggerMarkedForDeletion, StateMarkedForDeletion)

	machine.Configure(StateActive).
		Permit(TriggerMarkedForDeletion, StateMarkedForDeletion)

	machine.Configure(StateMarkedForDeletion).
		Permit(TriggerResetRequested, StatePasswordResetInFlight).
		Permit(TriggerRemovalScheduled, StateRemovedFromOrgPendingGrace).
		Permit(TriggerRemovedFromOrg, StateRemoved)

	machine.Configure(StatePasswordResetInFlight).
		Permit(TriggerResetCompleted, StateIdentityVerificationInFlight)

	machine.Configure(StateIdentityVerificationInFlight).
		Permit(TriggerVerificationPassed, StateClosureInFlight)

	machine.Configure(StateClosureInFlight).
		PermitReentry(TriggerClosureRecorded).
		Permit(TriggerRemovalScheduled, StateRemovedFromOrgPendingGrace).
		Permit(TriggerRemovedFromOrg, StateRemoved)

	machine.Configure(StateRemovedFromOrgPendingGrace).
		Permit(TriggerRemovedFromOrg, StateRemoved)

	return machine
}

// ValidateTransition fires the trigger matching from and to against a
// fresh machine, so an illegal jump is rejected before side effects.
func ValidateTransition(from, to string) error {
	machine := newLifecycleMachine(from)

	trigger := defineTrigger(from, to)
	if trigger == triggerInvalid {
		return fmt.Errorf("no transition from %s to %s", from, to)
	}

	if err := machine.Fire(trigger); err != nil {
		return fmt.Errorf("transition %s -> %s rejected: %w", from, to, err)
	}

	return nil
}

func defineTrigger(from, to string) string {
	type transition struct {
		From string
		To   string
	}

	triggerMap := map[transition]string{
		{From: StateRequested, To: StateCreated}:                                  TriggerAccountCreated,
		{From: StateCreated, To: StateOwnerAssigned}:                              TriggerOwnerAssigned,
		{From: StateOwnerAssigned, To: StateActive}:                               TriggerSSOGranted,
		{From: StateCreated, To: StateMarkedForDeletion}:                          TriggerMarkedForDeletion,
		{From: StateOwnerAssigned, To: StateMarkedForDeletion}:                    TriggerMarkedForDeletion,
		{From: StateActive, To: StateMarkedForDeletion}:                           TriggerMarkedForDeletion,
		{From: StateMarkedForDeletion, To: StatePasswordResetInFlight}:            TriggerResetRequested,
		{From: StatePasswordResetInFlight, To: StateIdentityVerificationInFlight}: TriggerResetCompleted,
		{From: StateIdentityVerificationInFlight, To: StateClosureInFlight}:       TriggerVerificationPassed,
		{From: StateClosureInFlight, To: StateClosureInFlight}:                    TriggerClosureRecorded,
		{From: StateMarkedForDeletion, To: StateRemovedFromOrgPendingGrace}:       TriggerRemovalScheduled,
		{From: StateClosureInFlight, To: StateRemovedFromOrgPendingGrace}:         TriggerRemovalScheduled,
		{From: StateMarkedForDeletion, To: StateRemoved}:                          TriggerRemovedFromOrg,
		{From: StateClosureInFlight, To: StateRemoved}:                            TriggerRemovedFromOrg,
		{From: StateRemovedFromOrgPendingGrace, To: StateRemoved}:                 TriggerRemovedFromOrg,
	}

	trigger, ok := triggerMap[transition{From: from, To: to}]
	if !ok {
		return triggerInvalid
	}

	return trigger
}

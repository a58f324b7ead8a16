// Package ownership implements the two-phase owner handoff used by every
// owned contract in the system. A transfer is first proposed by the current
// owner and only takes effect once the proposed owner explicitly accepts it,
// which keeps a mistyped address from silently taking control.
package ownership

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotOwner is returned when a caller other than the current owner
	// attempts an owner-only operation.
	ErrNotOwner = errors.New("ownership: caller is not the owner")

	// ErrNotPendingOwner is returned when Accept is called by anyone other
	// than the proposed owner, including when no transfer is pending.
	ErrNotPendingOwner = errors.New("ownership: caller is not the pending owner")

	// ErrSameOwner is returned when the owner proposes a transfer to itself.
	ErrSameOwner = errors.New("ownership: new owner is the current owner")
)

// Ownership tracks the current owner of an entity and an optional pending
// owner. The zero pending address means no transfer is in flight.
// It is a simple, non-thread-safe structure; the platform model serializes
// all state-mutating operations.
type Ownership struct {
	owner   common.Address
	pending common.Address
}

// New creates an Ownership with the given initial owner and no pending transfer.
func New(owner common.Address) *Ownership {
	return &Ownership{owner: owner}
}

// Owner returns the current owner.
func (o *Ownership) Owner() common.Address {
	return o.owner
}

// PendingOwner returns the proposed owner, or the zero address if no
// transfer is pending.
func (o *Ownership) PendingOwner() common.Address {
	return o.pending
}

// Transfer proposes newOwner as the next owner. Only the current owner may
// propose, and proposing the current owner is rejected. A previous pending
// proposal is overwritten.
func (o *Ownership) Transfer(caller, newOwner common.Address) error {
	if caller != o.owner {
		return ErrNotOwner
	}
	if newOwner == o.owner {
		return ErrSameOwner
	}
	o.pending = newOwner
	return nil
}

// Accept completes a pending transfer. Only the pending owner may accept;
// acceptance installs the caller as owner and clears the pending slot.
func (o *Ownership) Accept(caller common.Address) error {
	if o.pending == (common.Address{}) || caller != o.pending {
		return ErrNotPendingOwner
	}
	o.owner = o.pending
	o.pending = common.Address{}
	return nil
}

// Restore overwrites both slots. It exists for staged-commit rollback, where
// an orchestrator must return an entity to its exact pre-operation state
// after a failed multi-step sequence.
func (o *Ownership) Restore(owner, pending common.Address) {
	o.owner = owner
	o.pending = pending
}

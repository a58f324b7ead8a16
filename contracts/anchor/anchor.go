// Package anchor models the pool identity contract. An anchor is the stable,
// addressable identity of a liquidity pool; converter logic attaches to it
// and can be swapped out underneath it during an upgrade.
package anchor

import (
	"github.com/Kr1ptal/bancor-converter-go/contracts/ownership"
	"github.com/ethereum/go-ethereum/common"
)

// Anchor is an ownable pool identity. Its owner is normally the converter
// currently serving the pool, though some legacy deployments keep anchors
// owned externally.
type Anchor struct {
	addr   common.Address
	symbol string
	own    *ownership.Ownership
}

// New creates an anchor at addr owned by owner.
func New(addr common.Address, symbol string, owner common.Address) *Anchor {
	return &Anchor{
		addr:   addr,
		symbol: symbol,
		own:    ownership.New(owner),
	}
}

// Address returns the anchor's address.
func (a *Anchor) Address() common.Address {
	return a.addr
}

// Symbol returns the pool's display symbol.
func (a *Anchor) Symbol() string {
	return a.symbol
}

// Owner returns the anchor's current owner.
func (a *Anchor) Owner() common.Address {
	return a.own.Owner()
}

// PendingOwner returns the proposed owner, or the zero address.
func (a *Anchor) PendingOwner() common.Address {
	return a.own.PendingOwner()
}

// TransferOwnership proposes a new owner. Owner-only.
func (a *Anchor) TransferOwnership(caller, newOwner common.Address) error {
	return a.own.Transfer(caller, newOwner)
}

// AcceptOwnership completes a pending ownership transfer. Pending-owner-only.
func (a *Anchor) AcceptOwnership(caller common.Address) error {
	return a.own.Accept(caller)
}

// RestoreOwnership resets both ownership slots. Rollback hook for staged
// multi-step operations.
func (a *Anchor) RestoreOwnership(owner, pending common.Address) {
	a.own.Restore(owner, pending)
}

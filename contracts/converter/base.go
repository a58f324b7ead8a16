package converter

import (
	"fmt"
	"math/big"

	"github.com/Kr1ptal/bancor-converter-go/contracts/anchor"
	"github.com/Kr1ptal/bancor-converter-go/contracts/ownership"
	"github.com/Kr1ptal/bancor-converter-go/contracts/token"
	"github.com/ethereum/go-ethereum/common"
)

// base carries the state and behavior shared by every converter version:
// ownership, the anchor attachment, fee bounds and the ordered reserve set.
// Concrete versions embed it and add their era's capability surface.
type base struct {
	addr     common.Address
	own      *ownership.Ownership
	anchor   *anchor.Anchor
	registry common.Address
	version  uint16

	maxFee uint32
	fee    uint32

	// reserves preserves registration order; reserveIndex is a lookup into it.
	reserves     []Reserve
	reserveIndex map[common.Address]int

	tokens TokenResolverFunc
}

func newBase(addr common.Address, owner common.Address, anch *anchor.Anchor, registry common.Address, version uint16, maxFee uint32, tokens TokenResolverFunc) base {
	return base{
		addr:         addr,
		own:          ownership.New(owner),
		anchor:       anch,
		registry:     registry,
		version:      version,
		maxFee:       maxFee,
		reserveIndex: make(map[common.Address]int),
		tokens:       tokens,
	}
}

func (b *base) Address() common.Address {
	return b.addr
}

func (b *base) Owner() common.Address {
	return b.own.Owner()
}

func (b *base) PendingOwner() common.Address {
	return b.own.PendingOwner()
}

func (b *base) TransferOwnership(caller, newOwner common.Address) error {
	return b.own.Transfer(caller, newOwner)
}

func (b *base) AcceptOwnership(caller common.Address) error {
	return b.own.Accept(caller)
}

func (b *base) RestoreOwnership(owner, pending common.Address) {
	b.own.Restore(owner, pending)
}

func (b *base) Anchor() common.Address {
	return b.anchor.Address()
}

// TransferAnchorOwnership has the converter, acting as the anchor's current
// owner, propose a new anchor owner. Converter-owner-only.
func (b *base) TransferAnchorOwnership(caller, newOwner common.Address) error {
	if caller != b.own.Owner() {
		return ownership.ErrNotOwner
	}
	return b.anchor.TransferOwnership(b.addr, newOwner)
}

// AcceptAnchorOwnership has the converter accept a pending anchor ownership
// proposal addressed to it. Converter-owner-only.
func (b *base) AcceptAnchorOwnership(caller common.Address) error {
	if caller != b.own.Owner() {
		return ownership.ErrNotOwner
	}
	return b.anchor.AcceptOwnership(b.addr)
}

// Registry returns the contract registry address the converter was
// constructed against.
func (b *base) Registry() common.Address {
	return b.registry
}

func (b *base) Version() uint16 {
	return b.version
}

func (b *base) MaxConversionFee() uint32 {
	return b.maxFee
}

func (b *base) ConversionFee() uint32 {
	return b.fee
}

func (b *base) SetConversionFee(caller common.Address, fee uint32) error {
	if caller != b.own.Owner() {
		return ownership.ErrNotOwner
	}
	if fee > b.maxFee {
		return fmt.Errorf("%w: %d > %d", ErrInvalidFee, fee, b.maxFee)
	}
	b.fee = fee
	return nil
}

func (b *base) ReserveTokenCount() int {
	return len(b.reserves)
}

func (b *base) ReserveToken(index int) (common.Address, error) {
	if index < 0 || index >= len(b.reserves) {
		return common.Address{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(b.reserves))
	}
	return b.reserves[index].Token, nil
}

func (b *base) ReserveWeight(tok common.Address) (uint32, error) {
	i, ok := b.reserveIndex[tok]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrReserveNotFound, tok)
	}
	return b.reserves[i].Weight, nil
}

// ReserveBalance reads the converter's holding of the given reserve token
// from the token's ledger.
func (b *base) ReserveBalance(tok common.Address) (*big.Int, error) {
	if _, ok := b.reserveIndex[tok]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrReserveNotFound, tok)
	}
	ledger, err := b.tokens(tok)
	if err != nil {
		return nil, err
	}
	return ledger.BalanceOf(b.addr), nil
}

// AddReserve registers a reserve token with its PPM weight. Owner-only.
// Registration order is significant: it defines the reserve indices the
// lens and the upgrader iterate over.
func (b *base) AddReserve(caller common.Address, tok common.Address, weight uint32) error {
	if caller != b.own.Owner() {
		return ownership.ErrNotOwner
	}
	if tok == (common.Address{}) || tok == b.anchor.Address() {
		return fmt.Errorf("%w: token %s", ErrInvalidReserve, tok)
	}
	if weight == 0 || weight > WeightResolution {
		return fmt.Errorf("%w: weight %d", ErrInvalidReserve, weight)
	}
	if _, exists := b.reserveIndex[tok]; exists {
		return fmt.Errorf("%w: duplicate token %s", ErrInvalidReserve, tok)
	}
	total := weight
	for _, r := range b.reserves {
		total += r.Weight
	}
	if total > WeightResolution {
		return fmt.Errorf("%w: total weight %d exceeds resolution", ErrInvalidReserve, total)
	}
	if _, err := b.tokens(tok); err != nil {
		return fmt.Errorf("%w: unresolvable token %s", ErrInvalidReserve, tok)
	}

	b.reserveIndex[tok] = len(b.reserves)
	b.reserves = append(b.reserves, Reserve{Token: tok, Weight: weight})
	return nil
}

// withdrawTo moves amount of a reserve token from the converter to another
// address. Shared by the legacy withdrawal surface and the modern bulk
// transfer.
func (b *base) withdrawTo(tok common.Address, to common.Address, amount *big.Int) error {
	ledger, err := b.tokens(tok)
	if err != nil {
		return err
	}
	return ledger.Transfer(b.addr, to, amount)
}

// sweepNative moves the converter's entire native-asset reserve balance to
// another address. Fails if the native asset is not a registered reserve.
func (b *base) sweepNative(to common.Address) error {
	balance, err := b.ReserveBalance(token.NativeAddress)
	if err != nil {
		return err
	}
	return b.withdrawTo(token.NativeAddress, to, balance)
}

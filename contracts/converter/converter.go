// Package converter models the converter contract variants the lens and the
// upgrader consume: the pre-v28 legacy converter, the modern two-reserve
// liquidity pool converter and the modern standard (50/50) pool converter,
// plus the factory that constructs new instances during upgrades.
//
// Historical interface drift is expressed as optional capability interfaces.
// Callers probe a converter with a type assertion; an assertion that fails is
// the in-process analogue of a contract call that reverts because the
// function was never part of that version's ABI.
package converter

import (
	"errors"
	"math/big"

	"github.com/Kr1ptal/bancor-converter-go/contracts/token"
	"github.com/ethereum/go-ethereum/common"
)

// WeightResolution is the PPM denominator for reserve weights. The weights
// of a converter's reserves sum to at most this value.
const WeightResolution uint32 = 1_000_000

// Converter type codes, as self-reported by modern converters and as passed
// to the factory.
const (
	// TypeLiquidityPool is the generic multi-reserve liquidity pool.
	TypeLiquidityPool uint16 = 1

	// TypeStandardPool is the specialized two-reserve pool with both
	// reserves weighted at exactly half of WeightResolution.
	TypeStandardPool uint16 = 3
)

// LegacyTypeName is the string the oldest converters report from their
// string-typed variant of the type probe.
const LegacyTypeName = "bancor"

var (
	// ErrInvalidReserve is returned when a reserve token or weight fails
	// validation, or when a reserve is registered twice.
	ErrInvalidReserve = errors.New("converter: invalid reserve")

	// ErrReserveNotFound is returned when a token is not one of the
	// converter's reserves.
	ErrReserveNotFound = errors.New("converter: reserve not found")

	// ErrIndexOutOfRange is returned by indexed reserve accessors.
	ErrIndexOutOfRange = errors.New("converter: reserve index out of range")

	// ErrInvalidFee is returned when a conversion fee exceeds the
	// converter's max-fee ceiling.
	ErrInvalidFee = errors.New("converter: fee exceeds maximum")

	// ErrUnknownType is returned by the factory for a type code it cannot
	// construct.
	ErrUnknownType = errors.New("converter: unknown converter type")
)

// Reserve is one reserve token attached to a converter together with its
// relative weight in PPM.
type Reserve struct {
	Token  common.Address `json:"token"`
	Weight uint32         `json:"weight"`
}

// TokenResolverFunc resolves a token address to its ledger. Converters use
// it to read and move reserve balances held under their own address.
type TokenResolverFunc func(common.Address) (token.ReserveToken, error)

// Converter is the surface every converter version exposes. Anything beyond
// this moved across versions and is modeled as a capability interface below.
type Converter interface {
	Address() common.Address

	Owner() common.Address
	PendingOwner() common.Address
	TransferOwnership(caller, newOwner common.Address) error
	AcceptOwnership(caller common.Address) error
	RestoreOwnership(owner, pending common.Address)

	Anchor() common.Address
	TransferAnchorOwnership(caller, newOwner common.Address) error
	AcceptAnchorOwnership(caller common.Address) error

	Version() uint16
	MaxConversionFee() uint32
	ConversionFee() uint32
	SetConversionFee(caller common.Address, fee uint32) error

	ReserveTokenCount() int
	ReserveToken(index int) (common.Address, error)
	ReserveWeight(tok common.Address) (uint32, error)
	ReserveBalance(tok common.Address) (*big.Int, error)
	AddReserve(caller common.Address, tok common.Address, weight uint32) error
}

// TypedConverter is the numeric type probe introduced with v28 converters.
type TypedConverter interface {
	ConverterType() uint16
}

// NamedTypeConverter is the older string-typed variant of the type probe.
type NamedTypeConverter interface {
	ConverterTypeName() string
}

// VersionProbe is the capability marker distinguishing modern (v28+)
// converters. Its absence classifies a converter as legacy.
type VersionProbe interface {
	IsV28OrHigher() bool
}

// LegacyWithdrawer is the per-reserve withdrawal surface of converters up to
// version 45. The native asset uses a distinct full-balance sweep because
// those versions never tracked a withdrawable native amount separately.
type LegacyWithdrawer interface {
	WithdrawTokens(caller common.Address, tok common.Address, to common.Address, amount *big.Int) error
	WithdrawETH(caller common.Address, to common.Address) error
}

// ReserveTransferrer is the self-service bulk balance migration introduced
// after version 45.
type ReserveTransferrer interface {
	TransferReservesTo(caller common.Address, to common.Address) error
}

// UpgradeCompleter is the post-migration initialization hook on converters
// that are valid upgrade targets.
type UpgradeCompleter interface {
	OnUpgradeComplete(caller common.Address, oldConverter common.Address) error
}

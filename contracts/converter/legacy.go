package converter

import (
	"fmt"
	"math/big"

	"github.com/Kr1ptal/bancor-converter-go/contracts/anchor"
	"github.com/Kr1ptal/bancor-converter-go/contracts/ownership"
	"github.com/Kr1ptal/bancor-converter-go/contracts/token"
	"github.com/ethereum/go-ethereum/common"
)

// MaxLegacyVersion is the highest converter version without the self-service
// bulk reserve transfer. Balance migration from these versions withdraws
// each reserve individually.
const MaxLegacyVersion uint16 = 45

// LegacyConverter models converters predating v28. They expose the
// connector-token vocabulary, report their type only through the
// string-typed probe, and support per-reserve withdrawal with a distinct
// native-asset sweep. They do not implement the v28 capability marker.
type LegacyConverter struct {
	base
}

var (
	_ Converter          = (*LegacyConverter)(nil)
	_ NamedTypeConverter = (*LegacyConverter)(nil)
	_ LegacyWithdrawer   = (*LegacyConverter)(nil)
)

// NewLegacyConverter creates a legacy converter. version must not exceed
// MaxLegacyVersion.
func NewLegacyConverter(addr common.Address, owner common.Address, anch *anchor.Anchor, registry common.Address, version uint16, maxFee uint32, tokens TokenResolverFunc) (*LegacyConverter, error) {
	if version > MaxLegacyVersion {
		return nil, fmt.Errorf("converter: legacy version %d above %d", version, MaxLegacyVersion)
	}
	return &LegacyConverter{
		base: newBase(addr, owner, anch, registry, version, maxFee, tokens),
	}, nil
}

// ConverterTypeName implements the string-typed type probe of the oldest
// converter interfaces.
func (c *LegacyConverter) ConverterTypeName() string {
	return LegacyTypeName
}

// ConnectorTokenCount is the legacy name for the reserve count.
func (c *LegacyConverter) ConnectorTokenCount() int {
	return c.ReserveTokenCount()
}

// ConnectorToken is the legacy indexed reserve accessor.
func (c *LegacyConverter) ConnectorToken(index int) (common.Address, error) {
	return c.ReserveToken(index)
}

// ConnectorBalance is the legacy reserve balance accessor.
func (c *LegacyConverter) ConnectorBalance(tok common.Address) (*big.Int, error) {
	return c.ReserveBalance(tok)
}

// WithdrawTokens moves amount of a reserve token out of the converter.
// Owner-only.
func (c *LegacyConverter) WithdrawTokens(caller common.Address, tok common.Address, to common.Address, amount *big.Int) error {
	if caller != c.Owner() {
		return ownership.ErrNotOwner
	}
	if token.IsNative(tok) {
		return fmt.Errorf("%w: native asset requires WithdrawETH", ErrInvalidReserve)
	}
	return c.withdrawTo(tok, to, amount)
}

// WithdrawETH sweeps the converter's entire native-asset balance to the
// given address. Owner-only.
func (c *LegacyConverter) WithdrawETH(caller common.Address, to common.Address) error {
	if caller != c.Owner() {
		return ownership.ErrNotOwner
	}
	return c.sweepNative(to)
}

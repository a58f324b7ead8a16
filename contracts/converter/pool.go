package converter

import (
	"math/big"

	"github.com/Kr1ptal/bancor-converter-go/contracts/anchor"
	"github.com/Kr1ptal/bancor-converter-go/contracts/ownership"
	"github.com/ethereum/go-ethereum/common"
)

// LiquidityPoolVersion is the version the factory stamps on new generic
// liquidity pool converters. It sits at the top of the per-reserve
// withdrawal era, so balance migration away from it still goes reserve by
// reserve.
const LiquidityPoolVersion uint16 = 45

// LiquidityPoolConverter is the modern (v28+) generic multi-reserve
// converter, type code 1. It keeps the connector-token accessor vocabulary
// for compatibility with readers of the legacy interface.
type LiquidityPoolConverter struct {
	base
	upgradedFrom common.Address
}

var (
	_ Converter        = (*LiquidityPoolConverter)(nil)
	_ TypedConverter   = (*LiquidityPoolConverter)(nil)
	_ VersionProbe     = (*LiquidityPoolConverter)(nil)
	_ LegacyWithdrawer = (*LiquidityPoolConverter)(nil)
	_ UpgradeCompleter = (*LiquidityPoolConverter)(nil)
)

// NewLiquidityPoolConverter creates a generic liquidity pool converter at
// the current version.
func NewLiquidityPoolConverter(addr common.Address, owner common.Address, anch *anchor.Anchor, registry common.Address, maxFee uint32, tokens TokenResolverFunc) *LiquidityPoolConverter {
	return &LiquidityPoolConverter{
		base: newBase(addr, owner, anch, registry, LiquidityPoolVersion, maxFee, tokens),
	}
}

// ConverterType reports type code 1.
func (c *LiquidityPoolConverter) ConverterType() uint16 {
	return TypeLiquidityPool
}

// IsV28OrHigher marks the converter as modern.
func (c *LiquidityPoolConverter) IsV28OrHigher() bool {
	return true
}

// ConnectorTokenCount mirrors ReserveTokenCount under the legacy name.
func (c *LiquidityPoolConverter) ConnectorTokenCount() int {
	return c.ReserveTokenCount()
}

// ConnectorToken mirrors ReserveToken under the legacy name.
func (c *LiquidityPoolConverter) ConnectorToken(index int) (common.Address, error) {
	return c.ReserveToken(index)
}

// ConnectorBalance mirrors ReserveBalance under the legacy name.
func (c *LiquidityPoolConverter) ConnectorBalance(tok common.Address) (*big.Int, error) {
	return c.ReserveBalance(tok)
}

// WithdrawTokens moves amount of a reserve token out of the converter.
// Owner-only.
func (c *LiquidityPoolConverter) WithdrawTokens(caller common.Address, tok common.Address, to common.Address, amount *big.Int) error {
	if caller != c.Owner() {
		return ownership.ErrNotOwner
	}
	return c.withdrawTo(tok, to, amount)
}

// WithdrawETH sweeps the converter's native-asset balance. Owner-only.
func (c *LiquidityPoolConverter) WithdrawETH(caller common.Address, to common.Address) error {
	if caller != c.Owner() {
		return ownership.ErrNotOwner
	}
	return c.sweepNative(to)
}

// OnUpgradeComplete records the converter this instance was migrated from.
// Owner-only.
func (c *LiquidityPoolConverter) OnUpgradeComplete(caller common.Address, oldConverter common.Address) error {
	if caller != c.Owner() {
		return ownership.ErrNotOwner
	}
	c.upgradedFrom = oldConverter
	return nil
}

// UpgradedFrom returns the converter this instance replaced, or the zero
// address if it was not created by an upgrade.
func (c *LiquidityPoolConverter) UpgradedFrom() common.Address {
	return c.upgradedFrom
}

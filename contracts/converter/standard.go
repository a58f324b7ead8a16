package converter

import (
	"github.com/Kr1ptal/bancor-converter-go/contracts/anchor"
	"github.com/Kr1ptal/bancor-converter-go/contracts/ownership"
	"github.com/ethereum/go-ethereum/common"
)

// StandardPoolVersion is the version the factory stamps on new standard
// pool converters. First version with the self-service bulk reserve
// transfer.
const StandardPoolVersion uint16 = 46

// StandardPoolConverter is the specialized two-reserve 50/50 pool, type
// code 3. It exposes its reserves as a token list rather than through the
// connector vocabulary, and migrates balances with a single bulk transfer.
type StandardPoolConverter struct {
	base
	upgradedFrom common.Address
}

var (
	_ Converter          = (*StandardPoolConverter)(nil)
	_ TypedConverter     = (*StandardPoolConverter)(nil)
	_ VersionProbe       = (*StandardPoolConverter)(nil)
	_ ReserveTransferrer = (*StandardPoolConverter)(nil)
	_ UpgradeCompleter   = (*StandardPoolConverter)(nil)
)

// NewStandardPoolConverter creates a standard pool converter at the current
// version.
func NewStandardPoolConverter(addr common.Address, owner common.Address, anch *anchor.Anchor, registry common.Address, maxFee uint32, tokens TokenResolverFunc) *StandardPoolConverter {
	return &StandardPoolConverter{
		base: newBase(addr, owner, anch, registry, StandardPoolVersion, maxFee, tokens),
	}
}

// ConverterType reports type code 3.
func (c *StandardPoolConverter) ConverterType() uint16 {
	return TypeStandardPool
}

// IsV28OrHigher marks the converter as modern.
func (c *StandardPoolConverter) IsV28OrHigher() bool {
	return true
}

// ReserveTokens returns the reserve token addresses in registration order.
// The slice is a defensive copy.
func (c *StandardPoolConverter) ReserveTokens() []common.Address {
	tokens := make([]common.Address, len(c.reserves))
	for i, r := range c.reserves {
		tokens[i] = r.Token
	}
	return tokens
}

// TransferReservesTo moves every non-zero reserve balance to the given
// address in one call. Owner-only.
func (c *StandardPoolConverter) TransferReservesTo(caller common.Address, to common.Address) error {
	if caller != c.Owner() {
		return ownership.ErrNotOwner
	}
	for _, r := range c.reserves {
		balance, err := c.ReserveBalance(r.Token)
		if err != nil {
			return err
		}
		if balance.Sign() == 0 {
			continue
		}
		if err := c.withdrawTo(r.Token, to, balance); err != nil {
			return err
		}
	}
	return nil
}

// OnUpgradeComplete records the converter this instance was migrated from.
// Owner-only.
func (c *StandardPoolConverter) OnUpgradeComplete(caller common.Address, oldConverter common.Address) error {
	if caller != c.Owner() {
		return ownership.ErrNotOwner
	}
	c.upgradedFrom = oldConverter
	return nil
}

// UpgradedFrom returns the converter this instance replaced, or the zero
// address if it was not created by an upgrade.
func (c *StandardPoolConverter) UpgradedFrom() common.Address {
	return c.upgradedFrom
}

// Package upgrader implements the converter migration orchestrator. Given
// an old converter whose owner has proposed the upgrader as its next owner,
// it builds a replacement converter of the correct type, moves reserve
// configuration, fee and balances across, hands over anchor ownership where
// applicable and returns both converters to the original owner.
//
// The whole sequence runs inside one call as a staged commit: every applied
// side effect is journaled, and the first failing step unwinds all of them,
// so callers observe either a completed upgrade or no state change at all.
// The replacement converter only becomes resolvable once the migration has
// fully succeeded.
package upgrader

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Kr1ptal/bancor-converter-go/contracts/converter"
	"github.com/Kr1ptal/bancor-converter-go/contracts/registry"
	"github.com/Kr1ptal/bancor-converter-go/contracts/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines a standard interface for structured, leveled logging,
// compatible with the standard library's slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	// ErrNotPendingOwner is returned when the old converter's owner has not
	// proposed the upgrader as the next owner before calling Upgrade.
	ErrNotPendingOwner = errors.New("upgrader: converter ownership not proposed to upgrader")

	// ErrTooFewReserves is returned for legacy converters with fewer than
	// two reserves; these cannot be classified or upgraded.
	ErrTooFewReserves = errors.New("upgrader: legacy converter needs at least two reserves")

	// ErrFactoryUnset is returned when the contract registry has no
	// converter factory binding.
	ErrFactoryUnset = errors.New("upgrader: converter factory not set")

	// ErrNoTypeProbe is returned when a converter passes the v28 capability
	// check but does not report a numeric type.
	ErrNoTypeProbe = errors.New("upgrader: modern converter reports no type")

	// ErrNoWithdrawSurface is returned when a converter supports neither
	// the per-reserve withdrawal nor the bulk transfer needed to migrate
	// its balances.
	ErrNoWithdrawSurface = errors.New("upgrader: converter has no balance migration surface")
)

// Config holds the dependencies and identity of the Upgrader.
type Config struct {
	// Address is the upgrader's own address; converters are proposed to and
	// accepted by this identity.
	Address     common.Address
	Registry    *registry.ContractRegistry
	Deployments *registry.Deployments
	Logger      Logger
	Registerer  prometheus.Registerer
}

// validate checks that all essential fields in the Config are provided.
func (c *Config) validate() error {
	if c.Address == (common.Address{}) {
		return errors.New("config: Address is required")
	}
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	if c.Deployments == nil {
		return errors.New("config: Deployments is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registerer == nil {
		return errors.New("config: Registerer is required")
	}
	return nil
}

// Upgrader migrates converters to the current implementations. A single
// instance serves any number of converters; upgrades of different
// converters are independent and share no state beyond the registry.
type Upgrader struct {
	addr        common.Address
	registry    *registry.ContractRegistry
	deployments *registry.Deployments
	logger      Logger
	metrics     *metrics

	ownedFeed   event.Feed
	upgradeFeed event.Feed
}

// New creates an Upgrader from a configuration, returning an error if the
// config is invalid.
func New(cfg Config) (*Upgrader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Upgrader{
		addr:        cfg.Address,
		registry:    cfg.Registry,
		deployments: cfg.Deployments,
		logger:      cfg.Logger,
		metrics:     newMetrics(cfg.Registerer),
	}, nil
}

// Address returns the upgrader's own address. The old converter's owner
// must propose this address as the converter's next owner before upgrading.
func (u *Upgrader) Address() common.Address {
	return u.addr
}

// Upgrade migrates the converter at oldAddr to a freshly created
// replacement and returns the replacement's address. Precondition: the
// converter's owner has proposed the upgrader as pending owner. On any
// failure every applied side effect is rolled back and the error is
// returned; the caller may re-propose and retry.
func (u *Upgrader) Upgrade(oldAddr common.Address) (common.Address, error) {
	return u.upgrade(oldAddr)
}

// UpgradeOld is the compatibility entry point carrying a caller-declared
// version. The declared version is advisory only; classification always
// re-probes the converter itself.
func (u *Upgrader) UpgradeOld(oldAddr common.Address, declaredVersion uint16) (common.Address, error) {
	u.logger.Debug("ignoring declared version, probing converter", "converter", oldAddr, "declared_version", declaredVersion)
	return u.upgrade(oldAddr)
}

func (u *Upgrader) upgrade(oldAddr common.Address) (newAddr common.Address, err error) {
	timer := prometheus.NewTimer(u.metrics.upgradeDuration.WithLabelValues())
	defer timer.ObserveDuration()

	old, err := u.deployments.ConverterAt(oldAddr)
	if err != nil {
		u.metrics.failures.WithLabelValues().Inc()
		return common.Address{}, err
	}

	j := &journal{}
	defer func() {
		if err != nil {
			j.revert()
			u.metrics.failures.WithLabelValues().Inc()
			u.logger.Warn("upgrade rolled back", "converter", oldAddr, "error", err)
		}
	}()

	// 1. Accept ownership of the old converter.
	prevOwner, err := u.acceptConverterOwnership(old, j)
	if err != nil {
		return common.Address{}, err
	}

	// 2. Determine the target type and construct the replacement. The new
	// converter stays unregistered until the migration commits, so no
	// other caller can observe it half-configured.
	newConv, err := u.createReplacement(old)
	if err != nil {
		return common.Address{}, err
	}

	// 3. Copy reserves, all of them, in index order.
	if err = u.copyReserves(old, newConv); err != nil {
		return common.Address{}, err
	}

	// 4. Copy the conversion fee.
	if err = newConv.SetConversionFee(u.addr, old.ConversionFee()); err != nil {
		return common.Address{}, err
	}

	// 5. Migrate reserve balances.
	if err = u.transferReserveBalances(old, newConv, j); err != nil {
		return common.Address{}, err
	}

	// 6. Hand over anchor ownership, but only if the old converter is the
	// anchor's registered owner; some legacy setups keep anchors owned
	// externally.
	if err = u.handOverAnchor(old, newConv, j); err != nil {
		return common.Address{}, err
	}

	// 7. Return both converters to the original owner. Propose only: the
	// owner must separately accept, so a mistaken address cannot
	// immediately exercise owner-only functions.
	if err = old.TransferOwnership(u.addr, prevOwner); err != nil {
		return common.Address{}, err
	}
	if err = newConv.TransferOwnership(u.addr, prevOwner); err != nil {
		return common.Address{}, err
	}

	// 8. Notify the new converter and commit.
	if completer, ok := newConv.(converter.UpgradeCompleter); ok {
		if err = completer.OnUpgradeComplete(u.addr, oldAddr); err != nil {
			return common.Address{}, err
		}
	}
	if err = u.deployments.Register(newConv.Address(), newConv); err != nil {
		return common.Address{}, err
	}

	u.metrics.upgrades.WithLabelValues().Inc()
	u.upgradeFeed.Send(ConverterUpgrade{OldConverter: oldAddr, NewConverter: newConv.Address()})
	u.logger.Info("converter upgraded",
		"old_converter", oldAddr,
		"new_converter", newConv.Address(),
		"owner", prevOwner,
	)
	return newConv.Address(), nil
}

// acceptConverterOwnership completes the pending transfer that designates
// the upgrader as the old converter's next owner and returns the previous
// owner, to whom ownership is later handed back.
func (u *Upgrader) acceptConverterOwnership(old converter.Converter, j *journal) (common.Address, error) {
	prevOwner := old.Owner()
	prevPending := old.PendingOwner()
	if err := old.AcceptOwnership(u.addr); err != nil {
		return common.Address{}, fmt.Errorf("%w: %s", ErrNotPendingOwner, old.Address())
	}
	j.record(func() { old.RestoreOwnership(prevOwner, prevPending) })

	u.ownedFeed.Send(ConverterOwned{Converter: old.Address(), Owner: u.addr})
	u.logger.Info("accepted converter ownership", "converter", old.Address(), "previous_owner", prevOwner)
	return prevOwner, nil
}

// createReplacement classifies the old converter, has the factory build a
// replacement of the resulting type and takes ownership of it.
func (u *Upgrader) createReplacement(old converter.Converter) (converter.Converter, error) {
	typ, err := u.targetType(old)
	if err != nil {
		return nil, err
	}

	factoryAddr := u.registry.AddressOf(registry.ConverterFactoryName)
	if factoryAddr == (common.Address{}) {
		return nil, ErrFactoryUnset
	}
	factory, err := u.deployments.FactoryAt(factoryAddr)
	if err != nil {
		return nil, err
	}

	newConv, err := factory.CreateConverter(u.addr, typ, old.Anchor(), u.registry.Address(), old.MaxConversionFee())
	if err != nil {
		return nil, err
	}
	if err := newConv.AcceptOwnership(u.addr); err != nil {
		return nil, err
	}

	u.logger.Debug("created replacement converter",
		"old_converter", old.Address(),
		"new_converter", newConv.Address(),
		"type", typ,
	)
	return newConv, nil
}

// targetType decides the type code of the replacement converter. Modern
// converters self-report; legacy converters are classified from their
// reserve shape: exactly two reserves at half weight each make a standard
// pool, anything else the generic liquidity pool.
func (u *Upgrader) targetType(old converter.Converter) (uint16, error) {
	if probe, ok := old.(converter.VersionProbe); ok && probe.IsV28OrHigher() {
		typed, ok := old.(converter.TypedConverter)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrNoTypeProbe, old.Address())
		}
		return typed.ConverterType(), nil
	}

	count := old.ReserveTokenCount()
	if count <= 1 {
		return 0, fmt.Errorf("%w: %s has %d", ErrTooFewReserves, old.Address(), count)
	}
	if count == 2 {
		halfWeights := true
		for i := 0; i < 2; i++ {
			tok, err := old.ReserveToken(i)
			if err != nil {
				return 0, err
			}
			weight, err := old.ReserveWeight(tok)
			if err != nil {
				return 0, err
			}
			if weight != converter.WeightResolution/2 {
				halfWeights = false
				break
			}
		}
		if halfWeights {
			return converter.TypeStandardPool, nil
		}
	}
	return converter.TypeLiquidityPool, nil
}

// copyReserves registers every reserve of the old converter on the new one,
// in identical order and with identical weights.
func (u *Upgrader) copyReserves(old, new converter.Converter) error {
	for i := 0; i < old.ReserveTokenCount(); i++ {
		tok, err := old.ReserveToken(i)
		if err != nil {
			return err
		}
		weight, err := old.ReserveWeight(tok)
		if err != nil {
			return err
		}
		if err := new.AddReserve(u.addr, tok, weight); err != nil {
			return fmt.Errorf("upgrader: copy reserve %s: %w", tok, err)
		}
	}
	return nil
}

// transferReserveBalances moves the old converter's reserve holdings to the
// new converter. Converters up to version 45 never implemented a bulk
// transfer, so their balances are withdrawn reserve by reserve, with the
// native asset going through its dedicated sweep; later versions delegate
// to the converter's own bulk transfer.
func (u *Upgrader) transferReserveBalances(old, new converter.Converter, j *journal) error {
	moved, err := u.reserveBalances(old)
	if err != nil {
		return err
	}
	j.record(func() { u.returnBalances(new.Address(), old.Address(), moved) })

	if old.Version() <= converter.MaxLegacyVersion {
		withdrawer, ok := old.(converter.LegacyWithdrawer)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoWithdrawSurface, old.Address())
		}
		for i := 0; i < old.ReserveTokenCount(); i++ {
			tok, err := old.ReserveToken(i)
			if err != nil {
				return err
			}
			balance, held := moved[tok]
			if !held {
				continue // zero balance, nothing to withdraw
			}
			if token.IsNative(tok) {
				err = withdrawer.WithdrawETH(u.addr, new.Address())
			} else {
				err = withdrawer.WithdrawTokens(u.addr, tok, new.Address(), balance)
			}
			if err != nil {
				return fmt.Errorf("upgrader: withdraw %s: %w", tok, err)
			}
		}
		return nil
	}

	transferrer, ok := old.(converter.ReserveTransferrer)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoWithdrawSurface, old.Address())
	}
	return transferrer.TransferReservesTo(u.addr, new.Address())
}

// reserveBalances reads the old converter's non-zero reserve balances.
// Zero balances are left out so the migration makes no wasted calls.
func (u *Upgrader) reserveBalances(conv converter.Converter) (map[common.Address]*big.Int, error) {
	balances := make(map[common.Address]*big.Int)
	for i := 0; i < conv.ReserveTokenCount(); i++ {
		tok, err := conv.ReserveToken(i)
		if err != nil {
			return nil, err
		}
		balance, err := conv.ReserveBalance(tok)
		if err != nil {
			return nil, err
		}
		if balance.Sign() > 0 {
			balances[tok] = balance
		}
	}
	return balances, nil
}

// returnBalances is the journal undo for balance migration: it moves the
// recorded amounts back at the ledger level, regardless of how far the
// forward transfer got.
func (u *Upgrader) returnBalances(from, to common.Address, balances map[common.Address]*big.Int) {
	for tokAddr, amount := range balances {
		ledger, err := u.deployments.TokenAt(tokAddr)
		if err != nil {
			u.logger.Error("rollback: token unresolvable", "token", tokAddr, "error", err)
			continue
		}
		held := ledger.BalanceOf(from)
		if held.Cmp(amount) < 0 {
			// Forward transfer for this token never happened (or only
			// partially); return what is actually there.
			amount = held
		}
		if amount.Sign() == 0 {
			continue
		}
		if err := ledger.Transfer(from, to, amount); err != nil {
			u.logger.Error("rollback: balance return failed", "token", tokAddr, "error", err)
		}
	}
}

// handOverAnchor moves anchor ownership from the old to the new converter
// when, and only when, the old converter is the anchor's registered owner.
// The handoff goes through the anchor's own two-phase protocol: the old
// converter, still the owner, proposes; the new converter accepts.
func (u *Upgrader) handOverAnchor(old, new converter.Converter, j *journal) error {
	anch, err := u.deployments.AnchorAt(old.Anchor())
	if err != nil {
		return err
	}
	if anch.Owner() != old.Address() {
		u.logger.Debug("anchor owned externally, skipping handoff", "anchor", anch.Address(), "owner", anch.Owner())
		return nil
	}

	prevOwner := anch.Owner()
	prevPending := anch.PendingOwner()
	if err := old.TransferAnchorOwnership(u.addr, new.Address()); err != nil {
		return err
	}
	j.record(func() { anch.RestoreOwnership(prevOwner, prevPending) })

	if err := new.AcceptAnchorOwnership(u.addr); err != nil {
		return err
	}
	return nil
}

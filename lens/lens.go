// Package lens implements the read-only pool aggregator. It resolves the
// converter registry through the contract registry, walks every anchor to
// its owning converter, classifies the converter via capability probes and
// extracts a normalized snapshot of the pool's first two reserves.
package lens

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Kr1ptal/bancor-converter-go/contracts/converter"
	"github.com/Kr1ptal/bancor-converter-go/contracts/registry"
	"github.com/ethereum/go-ethereum/common"
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
	// ErrRegistryUnset is returned when the contract registry has no
	// converter registry binding.
	ErrRegistryUnset = errors.New("lens: converter registry not set")

	// ErrTooFewReserves is returned for converters with fewer than two
	// reserves; the snapshot shape requires reserve indices 0 and 1.
	ErrTooFewReserves = errors.New("lens: converter has fewer than two reserves")

	// ErrUnreadableConverter is returned when a converter exposes neither
	// reserve extraction surface.
	ErrUnreadableConverter = errors.New("lens: converter exposes no readable reserve surface")
)

// PoolSnapshot is a point-in-time view of one pool: its identity pair, the
// first two reserve tokens with their balances, and the conversion fee.
// Produced fresh per query, never persisted.
type PoolSnapshot struct {
	Anchor    common.Address `json:"anchor"`
	Converter common.Address `json:"converter"`
	Token0    common.Address `json:"token0"`
	Token1    common.Address `json:"token1"`
	Reserve0  *big.Int       `json:"reserve0"`
	Reserve1  *big.Int       `json:"reserve1"`
	FeePPM    uint32         `json:"feePPM"`
}

// Config holds the dependencies of the PoolLens.
type Config struct {
	Registry    *registry.ContractRegistry
	Deployments *registry.Deployments
	Logger      Logger
	Registerer  prometheus.Registerer
}

// validate checks that all essential fields in the Config are provided.
func (c *Config) validate() error {
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

// PoolLens aggregates pool snapshots across converter versions. It has no
// write path; every call reads external contract state at call time.
type PoolLens struct {
	registry    *registry.ContractRegistry
	deployments *registry.Deployments
	logger      Logger
	metrics     *metrics
}

// New creates a PoolLens from a configuration, returning an error if the
// config is invalid.
func New(cfg Config) (*PoolLens, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &PoolLens{
		registry:    cfg.Registry,
		deployments: cfg.Deployments,
		logger:      cfg.Logger,
		metrics:     newMetrics(cfg.Registerer),
	}, nil
}

// PoolSnapshots resolves the converter registry and returns one snapshot
// per registered anchor, in anchor order. A failure on any single anchor
// fails the whole call; there is no per-item error isolation.
func (l *PoolLens) PoolSnapshots() ([]PoolSnapshot, error) {
	timer := prometheus.NewTimer(l.metrics.batchDuration.WithLabelValues())
	defer timer.ObserveDuration()

	registryAddr := l.registry.AddressOf(registry.ConverterRegistryName)
	if registryAddr == (common.Address{}) {
		return nil, ErrRegistryUnset
	}
	converterRegistry, err := l.deployments.ConverterRegistryAt(registryAddr)
	if err != nil {
		return nil, fmt.Errorf("lens: resolve converter registry: %w", err)
	}

	anchors := converterRegistry.Anchors()
	snapshots := make([]PoolSnapshot, 0, len(anchors))
	for _, anchorAddr := range anchors {
		snapshot, err := l.AnchorSnapshot(anchorAddr)
		if err != nil {
			l.metrics.failures.WithLabelValues().Inc()
			return nil, fmt.Errorf("lens: anchor %s: %w", anchorAddr, err)
		}
		snapshots = append(snapshots, snapshot)
	}

	l.metrics.snapshots.WithLabelValues().Add(float64(len(snapshots)))
	return snapshots, nil
}

// AnchorSnapshot looks up the anchor's current owner, which is taken to be
// its converter, and delegates to ConverterSnapshot.
func (l *PoolLens) AnchorSnapshot(anchorAddr common.Address) (PoolSnapshot, error) {
	anch, err := l.deployments.AnchorAt(anchorAddr)
	if err != nil {
		return PoolSnapshot{}, err
	}
	return l.ConverterSnapshot(anchorAddr, anch.Owner())
}

// connectorReader is the reserve extraction surface of generic two-reserve
// converters, under the connector-token vocabulary.
type connectorReader interface {
	ConnectorTokenCount() int
	ConnectorToken(index int) (common.Address, error)
	ConnectorBalance(tok common.Address) (*big.Int, error)
}

// reserveLister is the reserve extraction surface of the reserve-token-list
// converter variant.
type reserveLister interface {
	ReserveTokens() []common.Address
}

// ConverterSnapshot classifies the converter via its type probes and
// extracts a snapshot of reserves 0 and 1. Classification, in priority
// order: numeric type 1 reads through the connector surface; numeric type 3
// reads through the reserve-token list; any other numeric type whose
// string-typed name probe equals the known legacy name falls back to the
// connector surface, as does a converter with no numeric probe at all.
// Converters with more than two reserves are not represented beyond their
// first two; this mirrors the shape of the snapshot, not a defect.
func (l *PoolLens) ConverterSnapshot(anchorAddr, converterAddr common.Address) (PoolSnapshot, error) {
	conv, err := l.deployments.ConverterAt(converterAddr)
	if err != nil {
		return PoolSnapshot{}, err
	}

	if typed, ok := conv.(converter.TypedConverter); ok {
		switch code := typed.ConverterType(); code {
		case converter.TypeLiquidityPool:
			return l.connectorSnapshot(anchorAddr, conv)
		case converter.TypeStandardPool:
			return l.listSnapshot(anchorAddr, conv)
		default:
			if named, ok := conv.(converter.NamedTypeConverter); ok &&
				Compare(named.ConverterTypeName(), converter.LegacyTypeName) == 0 {
				l.logger.Debug("unknown numeric converter type, matched legacy name", "converter", converterAddr, "type", code)
				return l.connectorSnapshot(anchorAddr, conv)
			}
			l.logger.Debug("unknown converter type, using connector fallback", "converter", converterAddr, "type", code)
			return l.connectorSnapshot(anchorAddr, conv)
		}
	}

	// No numeric probe at all: the converter predates the typed interface.
	return l.connectorSnapshot(anchorAddr, conv)
}

func (l *PoolLens) connectorSnapshot(anchorAddr common.Address, conv converter.Converter) (PoolSnapshot, error) {
	reader, ok := conv.(connectorReader)
	if !ok {
		return PoolSnapshot{}, fmt.Errorf("%w: %s", ErrUnreadableConverter, conv.Address())
	}
	if reader.ConnectorTokenCount() < 2 {
		return PoolSnapshot{}, fmt.Errorf("%w: %s", ErrTooFewReserves, conv.Address())
	}

	token0, err := reader.ConnectorToken(0)
	if err != nil {
		return PoolSnapshot{}, err
	}
	token1, err := reader.ConnectorToken(1)
	if err != nil {
		return PoolSnapshot{}, err
	}
	reserve0, err := reader.ConnectorBalance(token0)
	if err != nil {
		return PoolSnapshot{}, err
	}
	reserve1, err := reader.ConnectorBalance(token1)
	if err != nil {
		return PoolSnapshot{}, err
	}

	return PoolSnapshot{
		Anchor:    anchorAddr,
		Converter: conv.Address(),
		Token0:    token0,
		Token1:    token1,
		Reserve0:  reserve0,
		Reserve1:  reserve1,
		FeePPM:    conv.ConversionFee(),
	}, nil
}

func (l *PoolLens) listSnapshot(anchorAddr common.Address, conv converter.Converter) (PoolSnapshot, error) {
	lister, ok := conv.(reserveLister)
	if !ok {
		return PoolSnapshot{}, fmt.Errorf("%w: %s", ErrUnreadableConverter, conv.Address())
	}
	tokens := lister.ReserveTokens()
	if len(tokens) < 2 {
		return PoolSnapshot{}, fmt.Errorf("%w: %s", ErrTooFewReserves, conv.Address())
	}

	reserve0, err := conv.ReserveBalance(tokens[0])
	if err != nil {
		return PoolSnapshot{}, err
	}
	reserve1, err := conv.ReserveBalance(tokens[1])
	if err != nil {
		return PoolSnapshot{}, err
	}

	return PoolSnapshot{
		Anchor:    anchorAddr,
		Converter: conv.Address(),
		Token0:    tokens[0],
		Token1:    tokens[1],
		Reserve0:  reserve0,
		Reserve1:  reserve1,
		FeePPM:    conv.ConversionFee(),
	}, nil
}

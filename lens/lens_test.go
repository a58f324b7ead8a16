package lens

import (
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/Kr1ptal/bancor-converter-go/contracts/anchor"
	"github.com/Kr1ptal/bancor-converter-go/contracts/converter"
	"github.com/Kr1ptal/bancor-converter-go/contracts/registry"
	"github.com/Kr1ptal/bancor-converter-go/contracts/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	registryAddr     = common.HexToAddress("0x01")
	convRegistryAddr = common.HexToAddress("0x02")
	anchorA          = common.HexToAddress("0x0a")
	anchorB          = common.HexToAddress("0x0b")
	converterA       = common.HexToAddress("0x1a")
	converterB       = common.HexToAddress("0x1b")
	tokenX           = common.HexToAddress("0x20")
	tokenY           = common.HexToAddress("0x21")
	tokenZ           = common.HexToAddress("0x22")
	someOwner        = common.HexToAddress("0xaa")
)

func testLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture is the two-pool deployment most lens tests run against:
// anchor A owned by a type-1 converter over [X, Y] and anchor B owned by a
// type-3 converter over [Y, Z].
type fixture struct {
	registry     *registry.ContractRegistry
	deployments  *registry.Deployments
	convRegistry *registry.ConverterRegistry
	tokens       map[common.Address]*token.Token
	lens         *PoolLens
}

func (f *fixture) tokenResolver(addr common.Address) (token.ReserveToken, error) {
	return f.deployments.TokenAt(addr)
}

func (f *fixture) addPool(t *testing.T, anchorAddr, convAddr common.Address, build func(anch *anchor.Anchor) converter.Converter, reserves []converter.Reserve, balances []*big.Int, fee uint32) converter.Converter {
	t.Helper()
	anch := anchor.New(anchorAddr, "POOL", convAddr)
	require.NoError(t, f.deployments.Register(anchorAddr, anch))

	conv := build(anch)
	require.NoError(t, f.deployments.Register(convAddr, conv))
	for i, r := range reserves {
		require.NoError(t, conv.AddReserve(someOwner, r.Token, r.Weight))
		require.NoError(t, f.tokens[r.Token].Mint(convAddr, balances[i]))
	}
	require.NoError(t, conv.SetConversionFee(someOwner, fee))
	f.convRegistry.AddAnchor(anchorAddr)
	return conv
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		registry:     registry.NewContractRegistry(registryAddr),
		deployments:  registry.NewDeployments(),
		convRegistry: registry.NewConverterRegistry(convRegistryAddr),
		tokens: map[common.Address]*token.Token{
			tokenX: token.New(tokenX, "XXX"),
			tokenY: token.New(tokenY, "YYY"),
			tokenZ: token.New(tokenZ, "ZZZ"),
		},
	}
	for addr, tok := range f.tokens {
		require.NoError(t, f.deployments.Register(addr, tok))
	}
	require.NoError(t, f.deployments.Register(convRegistryAddr, f.convRegistry))
	f.registry.Register(registry.ConverterRegistryName, convRegistryAddr)

	f.addPool(t, anchorA, converterA, func(anch *anchor.Anchor) converter.Converter {
		return converter.NewLiquidityPoolConverter(converterA, someOwner, anch, registryAddr, 100000, f.tokenResolver)
	}, []converter.Reserve{
		{Token: tokenX, Weight: 500000},
		{Token: tokenY, Weight: 500000},
	}, []*big.Int{big.NewInt(100), big.NewInt(200)}, 1000)

	f.addPool(t, anchorB, converterB, func(anch *anchor.Anchor) converter.Converter {
		return converter.NewStandardPoolConverter(converterB, someOwner, anch, registryAddr, 100000, f.tokenResolver)
	}, []converter.Reserve{
		{Token: tokenY, Weight: 500000},
		{Token: tokenZ, Weight: 500000},
	}, []*big.Int{big.NewInt(50), big.NewInt(75)}, 2000)

	lens, err := New(Config{
		Registry:    f.registry,
		Deployments: f.deployments,
		Logger:      testLogger(),
		Registerer:  prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	f.lens = lens
	return f
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestPoolSnapshots(t *testing.T) {
	t.Run("EndToEnd", func(t *testing.T) {
		f := newFixture(t)
		snapshots, err := f.lens.PoolSnapshots()
		require.NoError(t, err)
		require.Len(t, snapshots, 2)

		assert.Equal(t, PoolSnapshot{
			Anchor:    anchorA,
			Converter: converterA,
			Token0:    tokenX,
			Token1:    tokenY,
			Reserve0:  big.NewInt(100),
			Reserve1:  big.NewInt(200),
			FeePPM:    1000,
		}, snapshots[0])

		assert.Equal(t, PoolSnapshot{
			Anchor:    anchorB,
			Converter: converterB,
			Token0:    tokenY,
			Token1:    tokenZ,
			Reserve0:  big.NewInt(50),
			Reserve1:  big.NewInt(75),
			FeePPM:    2000,
		}, snapshots[1])
	})

	t.Run("UnsetRegistryFails", func(t *testing.T) {
		f := newFixture(t)
		f.registry.Register(registry.ConverterRegistryName, common.Address{})
		_, err := f.lens.PoolSnapshots()
		assert.ErrorIs(t, err, ErrRegistryUnset)
	})

	t.Run("SingleBadAnchorFailsWholeBatch", func(t *testing.T) {
		f := newFixture(t)
		// An anchor with no deployed contract behind it.
		f.convRegistry.AddAnchor(common.HexToAddress("0xdead"))
		_, err := f.lens.PoolSnapshots()
		assert.ErrorIs(t, err, registry.ErrNotDeployed)
	})
}

// oddTypedConverter reports a numeric type the lens does not recognize
// while keeping the legacy name probe of the embedded converter.
type oddTypedConverter struct {
	*converter.LegacyConverter
	code uint16
}

func (c *oddTypedConverter) ConverterType() uint16 { return c.code }

// renamedConverter additionally reports a non-legacy type name.
type renamedConverter struct {
	*oddTypedConverter
}

func (c *renamedConverter) ConverterTypeName() string { return "something-else" }

func TestConverterSnapshotClassification(t *testing.T) {
	newLegacy := func(t *testing.T, f *fixture, anchorAddr, convAddr common.Address) *converter.LegacyConverter {
		t.Helper()
		anch := anchor.New(anchorAddr, "POOL", convAddr)
		require.NoError(t, f.deployments.Register(anchorAddr, anch))
		conv, err := converter.NewLegacyConverter(convAddr, someOwner, anch, registryAddr, 23, 100000, f.tokenResolver)
		require.NoError(t, err)
		require.NoError(t, conv.AddReserve(someOwner, tokenX, 300000))
		require.NoError(t, conv.AddReserve(someOwner, tokenZ, 700000))
		require.NoError(t, f.tokens[tokenX].Mint(convAddr, big.NewInt(11)))
		require.NoError(t, f.tokens[tokenZ].Mint(convAddr, big.NewInt(22)))
		require.NoError(t, conv.SetConversionFee(someOwner, 4000))
		return conv
	}

	expected := func(anchorAddr, convAddr common.Address) PoolSnapshot {
		return PoolSnapshot{
			Anchor:    anchorAddr,
			Converter: convAddr,
			Token0:    tokenX,
			Token1:    tokenZ,
			Reserve0:  big.NewInt(11),
			Reserve1:  big.NewInt(22),
			FeePPM:    4000,
		}
	}

	t.Run("NoNumericProbeFallsBackToConnectors", func(t *testing.T) {
		f := newFixture(t)
		anchorAddr := common.HexToAddress("0x0c")
		convAddr := common.HexToAddress("0x1c")
		conv := newLegacy(t, f, anchorAddr, convAddr)
		require.NoError(t, f.deployments.Register(convAddr, conv))

		snapshot, err := f.lens.ConverterSnapshot(anchorAddr, convAddr)
		require.NoError(t, err)
		assert.Equal(t, expected(anchorAddr, convAddr), snapshot)
	})

	t.Run("UnknownNumericTypeWithLegacyName", func(t *testing.T) {
		f := newFixture(t)
		anchorAddr := common.HexToAddress("0x0d")
		convAddr := common.HexToAddress("0x1d")
		conv := &oddTypedConverter{LegacyConverter: newLegacy(t, f, anchorAddr, convAddr), code: 2}
		require.NoError(t, f.deployments.Register(convAddr, conv))

		snapshot, err := f.lens.ConverterSnapshot(anchorAddr, convAddr)
		require.NoError(t, err)
		assert.Equal(t, expected(anchorAddr, convAddr), snapshot)
	})

	t.Run("UnknownNumericTypeWithForeignName", func(t *testing.T) {
		f := newFixture(t)
		anchorAddr := common.HexToAddress("0x0e")
		convAddr := common.HexToAddress("0x1e")
		conv := &renamedConverter{&oddTypedConverter{LegacyConverter: newLegacy(t, f, anchorAddr, convAddr), code: 9}}
		require.NoError(t, f.deployments.Register(convAddr, conv))

		// Still lands on the connector default.
		snapshot, err := f.lens.ConverterSnapshot(anchorAddr, convAddr)
		require.NoError(t, err)
		assert.Equal(t, expected(anchorAddr, convAddr), snapshot)
	})

	t.Run("TypeBranchesAreObservationallyEqual", func(t *testing.T) {
		// The fixture's two pools deliberately share tokenY; build a pair of
		// converters over identical reserve data, one per branch, and check
		// field-for-field equality modulo identity.
		f := newFixture(t)

		anchorC := common.HexToAddress("0x0f")
		converterC := common.HexToAddress("0x1f")
		anchC := anchor.New(anchorC, "POOL", converterC)
		require.NoError(t, f.deployments.Register(anchorC, anchC))
		lp := converter.NewLiquidityPoolConverter(converterC, someOwner, anchC, registryAddr, 100000, f.tokenResolver)
		require.NoError(t, f.deployments.Register(converterC, lp))

		anchorD := common.HexToAddress("0x10")
		converterD := common.HexToAddress("0x2f")
		anchD := anchor.New(anchorD, "POOL", converterD)
		require.NoError(t, f.deployments.Register(anchorD, anchD))
		std := converter.NewStandardPoolConverter(converterD, someOwner, anchD, registryAddr, 100000, f.tokenResolver)
		require.NoError(t, f.deployments.Register(converterD, std))

		for _, conv := range []converter.Converter{lp, std} {
			require.NoError(t, conv.AddReserve(someOwner, tokenX, 500000))
			require.NoError(t, conv.AddReserve(someOwner, tokenY, 500000))
			require.NoError(t, f.tokens[tokenX].Mint(conv.Address(), big.NewInt(123)))
			require.NoError(t, f.tokens[tokenY].Mint(conv.Address(), big.NewInt(456)))
			require.NoError(t, conv.SetConversionFee(someOwner, 3000))
		}

		fromLP, err := f.lens.ConverterSnapshot(anchorC, converterC)
		require.NoError(t, err)
		fromStd, err := f.lens.ConverterSnapshot(anchorD, converterD)
		require.NoError(t, err)

		// Strip identity fields; everything observable must match.
		fromLP.Anchor, fromStd.Anchor = common.Address{}, common.Address{}
		fromLP.Converter, fromStd.Converter = common.Address{}, common.Address{}
		assert.Equal(t, fromLP, fromStd)
	})

	t.Run("SingleReserveConverterFails", func(t *testing.T) {
		f := newFixture(t)
		anchorAddr := common.HexToAddress("0x11")
		convAddr := common.HexToAddress("0x3f")
		anch := anchor.New(anchorAddr, "POOL", convAddr)
		require.NoError(t, f.deployments.Register(anchorAddr, anch))
		conv, err := converter.NewLegacyConverter(convAddr, someOwner, anch, registryAddr, 23, 100000, f.tokenResolver)
		require.NoError(t, err)
		require.NoError(t, conv.AddReserve(someOwner, tokenX, 500000))
		require.NoError(t, f.deployments.Register(convAddr, conv))

		_, err = f.lens.ConverterSnapshot(anchorAddr, convAddr)
		assert.ErrorIs(t, err, ErrTooFewReserves)
	})
}

package converter

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/Kr1ptal/bancor-converter-go/contracts/anchor"
	"github.com/Kr1ptal/bancor-converter-go/contracts/ownership"
	"github.com/Kr1ptal/bancor-converter-go/contracts/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerAddr    = common.HexToAddress("0xaa")
	strangerAddr = common.HexToAddress("0xbb")
	registryAddr = common.HexToAddress("0x01")
	anchorAddr   = common.HexToAddress("0x02")
	convAddr     = common.HexToAddress("0x03")
	factoryAddr  = common.HexToAddress("0x04")
	bntAddr      = common.HexToAddress("0x10")
	daiAddr      = common.HexToAddress("0x11")
)

// world is a minimal test deployment: a couple of token ledgers and an
// anchor, with resolvers shaped like the production ones.
type world struct {
	tokens map[common.Address]*token.Token
	anchor *anchor.Anchor
}

func newWorld(t *testing.T, anchorOwner common.Address) *world {
	t.Helper()
	w := &world{
		tokens: map[common.Address]*token.Token{
			bntAddr:             token.New(bntAddr, "BNT"),
			daiAddr:             token.New(daiAddr, "DAI"),
			token.NativeAddress: token.NewNative(),
		},
		anchor: anchor.New(anchorAddr, "POOL", anchorOwner),
	}
	return w
}

func (w *world) tokenResolver(addr common.Address) (token.ReserveToken, error) {
	tok, ok := w.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("no token at %s", addr)
	}
	return tok, nil
}

func (w *world) anchorResolver(addr common.Address) (*anchor.Anchor, error) {
	if addr != w.anchor.Address() {
		return nil, fmt.Errorf("no anchor at %s", addr)
	}
	return w.anchor, nil
}

func newTestLegacy(t *testing.T, w *world, version uint16) *LegacyConverter {
	t.Helper()
	conv, err := NewLegacyConverter(convAddr, ownerAddr, w.anchor, registryAddr, version, 30000, w.tokenResolver)
	require.NoError(t, err)
	return conv
}

func TestBaseConverter(t *testing.T) {
	t.Run("AddReserve", func(t *testing.T) {
		t.Run("OwnerOnly", func(t *testing.T) {
			w := newWorld(t, convAddr)
			conv := newTestLegacy(t, w, 23)
			err := conv.AddReserve(strangerAddr, bntAddr, WeightResolution/2)
			assert.ErrorIs(t, err, ownership.ErrNotOwner)
		})

		t.Run("Validation", func(t *testing.T) {
			w := newWorld(t, convAddr)
			conv := newTestLegacy(t, w, 23)

			assert.ErrorIs(t, conv.AddReserve(ownerAddr, common.Address{}, 100), ErrInvalidReserve)
			assert.ErrorIs(t, conv.AddReserve(ownerAddr, anchorAddr, 100), ErrInvalidReserve)
			assert.ErrorIs(t, conv.AddReserve(ownerAddr, bntAddr, 0), ErrInvalidReserve)
			assert.ErrorIs(t, conv.AddReserve(ownerAddr, bntAddr, WeightResolution+1), ErrInvalidReserve)
			assert.ErrorIs(t, conv.AddReserve(ownerAddr, common.HexToAddress("0xdead"), 100), ErrInvalidReserve)

			require.NoError(t, conv.AddReserve(ownerAddr, bntAddr, WeightResolution/2))
			assert.ErrorIs(t, conv.AddReserve(ownerAddr, bntAddr, 100), ErrInvalidReserve, "duplicate")
			assert.ErrorIs(t, conv.AddReserve(ownerAddr, daiAddr, WeightResolution/2+1), ErrInvalidReserve, "total above resolution")
		})

		t.Run("PreservesOrder", func(t *testing.T) {
			w := newWorld(t, convAddr)
			conv := newTestLegacy(t, w, 23)
			require.NoError(t, conv.AddReserve(ownerAddr, daiAddr, 300000))
			require.NoError(t, conv.AddReserve(ownerAddr, bntAddr, 500000))

			require.Equal(t, 2, conv.ReserveTokenCount())
			first, err := conv.ReserveToken(0)
			require.NoError(t, err)
			second, err := conv.ReserveToken(1)
			require.NoError(t, err)
			assert.Equal(t, daiAddr, first)
			assert.Equal(t, bntAddr, second)

			_, err = conv.ReserveToken(2)
			assert.ErrorIs(t, err, ErrIndexOutOfRange)

			weight, err := conv.ReserveWeight(bntAddr)
			require.NoError(t, err)
			assert.Equal(t, uint32(500000), weight)

			_, err = conv.ReserveWeight(common.HexToAddress("0xdead"))
			assert.ErrorIs(t, err, ErrReserveNotFound)
		})
	})

	t.Run("ConversionFee", func(t *testing.T) {
		w := newWorld(t, convAddr)
		conv := newTestLegacy(t, w, 23)

		assert.ErrorIs(t, conv.SetConversionFee(strangerAddr, 100), ownership.ErrNotOwner)
		assert.ErrorIs(t, conv.SetConversionFee(ownerAddr, 30001), ErrInvalidFee)
		require.NoError(t, conv.SetConversionFee(ownerAddr, 1000))
		assert.Equal(t, uint32(1000), conv.ConversionFee())
		assert.Equal(t, uint32(30000), conv.MaxConversionFee())
	})

	t.Run("ReserveBalance", func(t *testing.T) {
		w := newWorld(t, convAddr)
		conv := newTestLegacy(t, w, 23)
		require.NoError(t, conv.AddReserve(ownerAddr, bntAddr, 500000))
		require.NoError(t, w.tokens[bntAddr].Mint(convAddr, big.NewInt(777)))

		balance, err := conv.ReserveBalance(bntAddr)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(777), balance)

		_, err = conv.ReserveBalance(daiAddr)
		assert.ErrorIs(t, err, ErrReserveNotFound)
	})

	t.Run("AnchorOwnership", func(t *testing.T) {
		w := newWorld(t, convAddr)
		conv := newTestLegacy(t, w, 23)
		other := common.HexToAddress("0xcc")

		assert.ErrorIs(t, conv.TransferAnchorOwnership(strangerAddr, other), ownership.ErrNotOwner)
		require.NoError(t, conv.TransferAnchorOwnership(ownerAddr, other))
		assert.Equal(t, other, w.anchor.PendingOwner())
		assert.Equal(t, convAddr, w.anchor.Owner(), "still owned by converter until acceptance")
	})
}

func TestLegacyConverter(t *testing.T) {
	t.Run("RejectsModernVersion", func(t *testing.T) {
		w := newWorld(t, convAddr)
		_, err := NewLegacyConverter(convAddr, ownerAddr, w.anchor, registryAddr, MaxLegacyVersion+1, 30000, w.tokenResolver)
		assert.Error(t, err)
	})

	t.Run("CapabilitySurface", func(t *testing.T) {
		w := newWorld(t, convAddr)
		conv := newTestLegacy(t, w, 23)

		var asAny any = conv
		_, typed := asAny.(TypedConverter)
		assert.False(t, typed, "legacy converters predate the numeric type probe")
		_, modern := asAny.(VersionProbe)
		assert.False(t, modern, "legacy converters predate the v28 marker")
		named, ok := asAny.(NamedTypeConverter)
		require.True(t, ok)
		assert.Equal(t, LegacyTypeName, named.ConverterTypeName())
	})

	t.Run("WithdrawTokens", func(t *testing.T) {
		w := newWorld(t, convAddr)
		conv := newTestLegacy(t, w, 23)
		require.NoError(t, conv.AddReserve(ownerAddr, bntAddr, 500000))
		require.NoError(t, w.tokens[bntAddr].Mint(convAddr, big.NewInt(100)))

		dest := common.HexToAddress("0xdd")
		assert.ErrorIs(t, conv.WithdrawTokens(strangerAddr, bntAddr, dest, big.NewInt(40)), ownership.ErrNotOwner)
		assert.ErrorIs(t, conv.WithdrawTokens(ownerAddr, token.NativeAddress, dest, big.NewInt(1)), ErrInvalidReserve)

		require.NoError(t, conv.WithdrawTokens(ownerAddr, bntAddr, dest, big.NewInt(40)))
		assert.Equal(t, big.NewInt(40), w.tokens[bntAddr].BalanceOf(dest))
		assert.Equal(t, big.NewInt(60), w.tokens[bntAddr].BalanceOf(convAddr))
	})

	t.Run("WithdrawETH", func(t *testing.T) {
		w := newWorld(t, convAddr)
		conv := newTestLegacy(t, w, 23)
		require.NoError(t, conv.AddReserve(ownerAddr, token.NativeAddress, 500000))
		require.NoError(t, w.tokens[token.NativeAddress].Mint(convAddr, big.NewInt(55)))

		dest := common.HexToAddress("0xdd")
		assert.ErrorIs(t, conv.WithdrawETH(strangerAddr, dest), ownership.ErrNotOwner)
		require.NoError(t, conv.WithdrawETH(ownerAddr, dest))
		assert.Equal(t, big.NewInt(55), w.tokens[token.NativeAddress].BalanceOf(dest))
		assert.Zero(t, w.tokens[token.NativeAddress].BalanceOf(convAddr).Sign())
	})
}

func TestStandardPoolConverter(t *testing.T) {
	w := newWorld(t, convAddr)
	conv := NewStandardPoolConverter(convAddr, ownerAddr, w.anchor, registryAddr, 30000, w.tokenResolver)
	require.NoError(t, conv.AddReserve(ownerAddr, bntAddr, 500000))
	require.NoError(t, conv.AddReserve(ownerAddr, daiAddr, 500000))
	require.NoError(t, w.tokens[bntAddr].Mint(convAddr, big.NewInt(100)))

	t.Run("TypeAndVersion", func(t *testing.T) {
		assert.Equal(t, TypeStandardPool, conv.ConverterType())
		assert.True(t, conv.IsV28OrHigher())
		assert.Greater(t, conv.Version(), MaxLegacyVersion)
	})

	t.Run("ReserveTokens", func(t *testing.T) {
		tokens := conv.ReserveTokens()
		assert.Equal(t, []common.Address{bntAddr, daiAddr}, tokens)
		tokens[0] = common.Address{}
		assert.Equal(t, []common.Address{bntAddr, daiAddr}, conv.ReserveTokens(), "defensive copy")
	})

	t.Run("TransferReservesTo", func(t *testing.T) {
		dest := common.HexToAddress("0xdd")
		assert.ErrorIs(t, conv.TransferReservesTo(strangerAddr, dest), ownership.ErrNotOwner)

		// daiAddr has a zero balance and must simply be skipped.
		require.NoError(t, conv.TransferReservesTo(ownerAddr, dest))
		assert.Equal(t, big.NewInt(100), w.tokens[bntAddr].BalanceOf(dest))
		assert.Zero(t, w.tokens[bntAddr].BalanceOf(convAddr).Sign())
	})
}

func TestFactory(t *testing.T) {
	w := newWorld(t, convAddr)
	factory := NewFactory(factoryAddr, w.anchorResolver, w.tokenResolver)

	t.Run("CreatesBothTypes", func(t *testing.T) {
		lp, err := factory.CreateConverter(ownerAddr, TypeLiquidityPool, anchorAddr, registryAddr, 30000)
		require.NoError(t, err)
		std, err := factory.CreateConverter(ownerAddr, TypeStandardPool, anchorAddr, registryAddr, 30000)
		require.NoError(t, err)

		assert.IsType(t, (*LiquidityPoolConverter)(nil), lp)
		assert.IsType(t, (*StandardPoolConverter)(nil), std)
		assert.NotEqual(t, lp.Address(), std.Address(), "fresh address per creation")
		assert.Equal(t, anchorAddr, lp.Anchor())
	})

	t.Run("ProposesOwnershipToCaller", func(t *testing.T) {
		conv, err := factory.CreateConverter(ownerAddr, TypeStandardPool, anchorAddr, registryAddr, 30000)
		require.NoError(t, err)
		assert.Equal(t, factoryAddr, conv.Owner())
		assert.Equal(t, ownerAddr, conv.PendingOwner())
		require.NoError(t, conv.AcceptOwnership(ownerAddr))
		assert.Equal(t, ownerAddr, conv.Owner())
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := factory.CreateConverter(ownerAddr, 7, anchorAddr, registryAddr, 30000)
		assert.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("UnknownAnchor", func(t *testing.T) {
		_, err := factory.CreateConverter(ownerAddr, TypeStandardPool, common.HexToAddress("0xdead"), registryAddr, 30000)
		assert.Error(t, err)
	})

	t.Run("MaxFeeAboveResolution", func(t *testing.T) {
		_, err := factory.CreateConverter(ownerAddr, TypeStandardPool, anchorAddr, registryAddr, WeightResolution+1)
		assert.ErrorIs(t, err, ErrInvalidFee)
	})
}

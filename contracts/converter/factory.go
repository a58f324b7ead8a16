package converter

import (
	"encoding/binary"
	"fmt"

	"github.com/Kr1ptal/bancor-converter-go/contracts/anchor"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AnchorResolverFunc resolves an anchor address to its contract.
type AnchorResolverFunc func(common.Address) (*anchor.Anchor, error)

// Factory constructs new converter instances. Ownership of each new
// converter is proposed to the caller, who must accept it to take control;
// until then the factory remains the owner.
type Factory struct {
	addr    common.Address
	anchors AnchorResolverFunc
	tokens  TokenResolverFunc
	nonce   uint64
}

// NewFactory creates a factory deployed at addr.
func NewFactory(addr common.Address, anchors AnchorResolverFunc, tokens TokenResolverFunc) *Factory {
	return &Factory{
		addr:    addr,
		anchors: anchors,
		tokens:  tokens,
	}
}

// Address returns the factory's address.
func (f *Factory) Address() common.Address {
	return f.addr
}

// CreateConverter constructs a converter of the given type code attached to
// the anchor, wired to the given contract registry and capped at maxFee.
// The new instance's ownership is proposed to caller.
func (f *Factory) CreateConverter(caller common.Address, typ uint16, anchorAddr common.Address, registry common.Address, maxFee uint32) (Converter, error) {
	anch, err := f.anchors(anchorAddr)
	if err != nil {
		return nil, fmt.Errorf("factory: resolve anchor %s: %w", anchorAddr, err)
	}
	if maxFee > WeightResolution {
		return nil, fmt.Errorf("%w: max fee %d", ErrInvalidFee, maxFee)
	}

	addr := f.nextAddress()
	var conv Converter
	switch typ {
	case TypeLiquidityPool:
		conv = NewLiquidityPoolConverter(addr, f.addr, anch, registry, maxFee, f.tokens)
	case TypeStandardPool:
		conv = NewStandardPoolConverter(addr, f.addr, anch, registry, maxFee, f.tokens)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, typ)
	}

	if err := conv.TransferOwnership(f.addr, caller); err != nil {
		return nil, err
	}
	return conv, nil
}

// nextAddress derives a fresh deterministic address from the factory
// address and its creation nonce, the way contract creation derives
// addresses from the creator.
func (f *Factory) nextAddress() common.Address {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], f.nonce)
	f.nonce++
	return common.BytesToAddress(crypto.Keccak256(f.addr.Bytes(), nonce[:])[12:])
}

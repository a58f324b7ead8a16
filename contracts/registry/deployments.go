package registry

import (
	"errors"
	"fmt"

	"github.com/Kr1ptal/bancor-converter-go/contracts/anchor"
	"github.com/Kr1ptal/bancor-converter-go/contracts/converter"
	"github.com/Kr1ptal/bancor-converter-go/contracts/token"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotDeployed is returned when no contract is registered at an
	// address.
	ErrNotDeployed = errors.New("registry: no contract at address")

	// ErrWrongContract is returned when the contract at an address is not
	// of the requested kind.
	ErrWrongContract = errors.New("registry: contract kind mismatch")

	// ErrAlreadyDeployed is returned when an address is registered twice.
	ErrAlreadyDeployed = errors.New("registry: address already in use")
)

// Deployments indexes deployed contract instances by address so that
// components holding only an address can reach the instance behind it.
type Deployments struct {
	byAddress map[common.Address]any
}

// NewDeployments creates an empty deployments index.
func NewDeployments() *Deployments {
	return &Deployments{
		byAddress: make(map[common.Address]any),
	}
}

// Register places a contract instance at addr. Each address can host at
// most one contract.
func (d *Deployments) Register(addr common.Address, contract any) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrWrongContract)
	}
	if _, exists := d.byAddress[addr]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyDeployed, addr)
	}
	d.byAddress[addr] = contract
	return nil
}

// At returns the raw contract instance at addr.
func (d *Deployments) At(addr common.Address) (any, error) {
	contract, ok := d.byAddress[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDeployed, addr)
	}
	return contract, nil
}

// ConverterAt resolves addr to a converter.
func (d *Deployments) ConverterAt(addr common.Address) (converter.Converter, error) {
	contract, err := d.At(addr)
	if err != nil {
		return nil, err
	}
	conv, ok := contract.(converter.Converter)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a converter", ErrWrongContract, addr)
	}
	return conv, nil
}

// AnchorAt resolves addr to an anchor.
func (d *Deployments) AnchorAt(addr common.Address) (*anchor.Anchor, error) {
	contract, err := d.At(addr)
	if err != nil {
		return nil, err
	}
	anch, ok := contract.(*anchor.Anchor)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an anchor", ErrWrongContract, addr)
	}
	return anch, nil
}

// FactoryAt resolves addr to a converter factory.
func (d *Deployments) FactoryAt(addr common.Address) (*converter.Factory, error) {
	contract, err := d.At(addr)
	if err != nil {
		return nil, err
	}
	factory, ok := contract.(*converter.Factory)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a converter factory", ErrWrongContract, addr)
	}
	return factory, nil
}

// ConverterRegistryAt resolves addr to a converter registry.
func (d *Deployments) ConverterRegistryAt(addr common.Address) (*ConverterRegistry, error) {
	contract, err := d.At(addr)
	if err != nil {
		return nil, err
	}
	reg, ok := contract.(*ConverterRegistry)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a converter registry", ErrWrongContract, addr)
	}
	return reg, nil
}

// TokenAt resolves addr to a reserve token ledger.
func (d *Deployments) TokenAt(addr common.Address) (token.ReserveToken, error) {
	contract, err := d.At(addr)
	if err != nil {
		return nil, err
	}
	tok, ok := contract.(token.ReserveToken)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a token", ErrWrongContract, addr)
	}
	return tok, nil
}

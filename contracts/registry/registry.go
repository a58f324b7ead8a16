// Package registry holds the discovery surfaces of the system: the
// contract registry mapping component names to deployed addresses, the
// converter registry enumerating pool anchors, and the deployments index
// resolving addresses back to in-memory contract instances.
package registry

import (
	"github.com/ethereum/go-ethereum/common"
)

// Well-known component names resolvable through the ContractRegistry.
const (
	ContractRegistryName  = "ContractRegistry"
	ConverterFactoryName  = "ConverterFactory"
	ConverterRegistryName = "BancorConverterRegistry"
	ConverterUpgraderName = "BancorConverterUpgrader"
)

// ContractRegistry resolves symbolic component names to deployed addresses.
// An unregistered name resolves to the zero address, which callers treat as
// "unset".
type ContractRegistry struct {
	addr  common.Address
	items map[string]common.Address
}

// NewContractRegistry creates an empty registry deployed at addr.
func NewContractRegistry(addr common.Address) *ContractRegistry {
	return &ContractRegistry{
		addr:  addr,
		items: make(map[string]common.Address),
	}
}

// Address returns the registry's own address.
func (r *ContractRegistry) Address() common.Address {
	return r.addr
}

// AddressOf resolves name, returning the zero address when unset.
func (r *ContractRegistry) AddressOf(name string) common.Address {
	return r.items[name]
}

// Register binds name to addr, overwriting any previous binding. Binding
// the zero address removes the entry.
func (r *ContractRegistry) Register(name string, addr common.Address) {
	if addr == (common.Address{}) {
		delete(r.items, name)
		return
	}
	r.items[name] = addr
}

// ConverterRegistry enumerates the anchors of all registered pools.
type ConverterRegistry struct {
	addr    common.Address
	anchors []common.Address
	known   map[common.Address]struct{}
}

// NewConverterRegistry creates an empty converter registry deployed at addr.
func NewConverterRegistry(addr common.Address) *ConverterRegistry {
	return &ConverterRegistry{
		addr:  addr,
		known: make(map[common.Address]struct{}),
	}
}

// Address returns the converter registry's address.
func (r *ConverterRegistry) Address() common.Address {
	return r.addr
}

// AddAnchor appends an anchor to the registry. Duplicates are ignored;
// registration order is preserved for enumeration.
func (r *ConverterRegistry) AddAnchor(anchor common.Address) {
	if _, exists := r.known[anchor]; exists {
		return
	}
	r.known[anchor] = struct{}{}
	r.anchors = append(r.anchors, anchor)
}

// AnchorCount returns the number of registered anchors.
func (r *ConverterRegistry) AnchorCount() int {
	return len(r.anchors)
}

// Anchors returns a defensive copy of all anchors in registration order.
func (r *ConverterRegistry) Anchors() []common.Address {
	anchors := make([]common.Address, len(r.anchors))
	copy(anchors, r.anchors)
	return anchors
}

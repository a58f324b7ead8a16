// Package token models the reserve-token abstraction consumed by converters:
// a fungible balance ledger addressed by account, with the chain's native
// asset represented as a token under a well-known sentinel address so that
// reserve enumeration can treat both uniformly.
package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrInsufficientBalance is returned by Transfer when the sender's
	// balance does not cover the requested amount.
	ErrInsufficientBalance = errors.New("token: insufficient balance")

	// ErrAmountOutOfRange is returned when an amount is negative or does
	// not fit the 256-bit balance domain.
	ErrAmountOutOfRange = errors.New("token: amount out of range")

	// ErrBalanceOverflow is returned when a credit would overflow the
	// recipient's 256-bit balance.
	ErrBalanceOverflow = errors.New("token: balance overflow")
)

// NativeAddress is the sentinel under which the native asset is addressed.
var NativeAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// IsNative reports whether addr denotes the native asset rather than a
// token contract.
func IsNative(addr common.Address) bool {
	return addr == NativeAddress
}

// ReserveToken is the balance/transfer surface converters and the upgrader
// depend on. Implementations cover both token contracts and the native asset.
type ReserveToken interface {
	Address() common.Address
	BalanceOf(account common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
}

// Token is an in-memory fungible token ledger. Balances are kept as 256-bit
// integers with explicit overflow checks, mirroring the arithmetic domain of
// the contracts it stands in for. Not thread-safe; the platform model
// serializes all state-mutating operations.
type Token struct {
	addr     common.Address
	symbol   string
	balances map[common.Address]*uint256.Int
}

// New creates an empty ledger for a token deployed at addr.
func New(addr common.Address, symbol string) *Token {
	return &Token{
		addr:     addr,
		symbol:   symbol,
		balances: make(map[common.Address]*uint256.Int),
	}
}

// NewNative creates the ledger for the native asset under NativeAddress.
func NewNative() *Token {
	return New(NativeAddress, "ETH")
}

// Address returns the token's address (NativeAddress for the native asset).
func (t *Token) Address() common.Address {
	return t.addr
}

// Symbol returns the token's display symbol.
func (t *Token) Symbol() string {
	return t.symbol
}

// BalanceOf returns account's balance. The result is a fresh big.Int the
// caller owns; mutating it does not touch ledger state.
func (t *Token) BalanceOf(account common.Address) *big.Int {
	bal, ok := t.balances[account]
	if !ok {
		return new(big.Int)
	}
	return bal.ToBig()
}

// Transfer moves amount from one account to another. A zero amount is a
// no-op. Fails without side effects if the sender's balance is short.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	if value.IsZero() {
		return nil
	}

	fromBal, ok := t.balances[from]
	if !ok || fromBal.Lt(value) {
		return fmt.Errorf("%w: %s has %s, needs %s of %s",
			ErrInsufficientBalance, from, t.BalanceOf(from), amount, t.symbol)
	}

	toBal, ok := t.balances[to]
	if !ok {
		toBal = new(uint256.Int)
		t.balances[to] = toBal
	}
	if _, overflow := new(uint256.Int).AddOverflow(toBal, value); overflow {
		return ErrBalanceOverflow
	}

	fromBal.Sub(fromBal, value)
	toBal.Add(toBal, value)
	return nil
}

// Mint credits amount to account, growing total supply. Used when seeding
// deployments and in tests.
func (t *Token) Mint(account common.Address, amount *big.Int) error {
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	bal, ok := t.balances[account]
	if !ok {
		bal = new(uint256.Int)
		t.balances[account] = bal
	}
	if _, overflow := new(uint256.Int).AddOverflow(bal, value); overflow {
		return ErrBalanceOverflow
	}
	bal.Add(bal, value)
	return nil
}

func toUint256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrAmountOutOfRange
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrAmountOutOfRange
	}
	return value, nil
}

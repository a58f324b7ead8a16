// Package config loads the console's deployment fixture: a declarative
// description of tokens and pools from which an in-memory deployment is
// built.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"
)

// Pool kinds accepted in a fixture.
const (
	KindLegacy        = "legacy"
	KindLiquidityPool = "liquidity"
	KindStandardPool  = "standard"
)

// Reserve describes one reserve of a fixture pool.
type Reserve struct {
	Token     string `yaml:"token"`
	WeightPPM uint32 `yaml:"weightPPM"`
	Balance   string `yaml:"balance"`
}

// ParsedBalance returns the reserve balance as a big.Int.
func (r *Reserve) ParsedBalance() (*big.Int, error) {
	if r.Balance == "" {
		return new(big.Int), nil
	}
	balance, ok := new(big.Int).SetString(r.Balance, 10)
	if !ok || balance.Sign() < 0 {
		return nil, fmt.Errorf("config: invalid balance %q for reserve %s", r.Balance, r.Token)
	}
	return balance, nil
}

// Pool describes one fixture pool: its anchor symbol, the converter kind
// serving it and its reserves.
type Pool struct {
	Symbol   string    `yaml:"symbol"`
	Kind     string    `yaml:"kind"`
	FeePPM   uint32    `yaml:"feePPM"`
	Reserves []Reserve `yaml:"reserves"`
}

// Fixture is the full console fixture.
type Fixture struct {
	// Tokens lists the token symbols to deploy. The native asset is always
	// available and needs no entry.
	Tokens []string `yaml:"tokens"`

	// MaxFeePPM is the fee ceiling stamped on every fixture converter.
	MaxFeePPM uint32 `yaml:"maxFeePPM"`

	Pools []Pool `yaml:"pools"`
}

// validate checks the fixture for internal consistency.
func (f *Fixture) validate() error {
	if len(f.Pools) == 0 {
		return errors.New("config: fixture has no pools")
	}
	known := make(map[string]bool, len(f.Tokens))
	for _, symbol := range f.Tokens {
		known[symbol] = true
	}
	for _, pool := range f.Pools {
		switch pool.Kind {
		case KindLegacy, KindLiquidityPool, KindStandardPool:
		default:
			return fmt.Errorf("config: pool %s has unknown kind %q", pool.Symbol, pool.Kind)
		}
		if len(pool.Reserves) < 2 {
			return fmt.Errorf("config: pool %s needs at least two reserves", pool.Symbol)
		}
		for _, r := range pool.Reserves {
			if r.Token != "ETH" && !known[r.Token] {
				return fmt.Errorf("config: pool %s references undeclared token %q", pool.Symbol, r.Token)
			}
			if _, err := r.ParsedBalance(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads and validates a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := fixture.validate(); err != nil {
		return nil, err
	}
	return &fixture, nil
}

// Default returns the built-in fixture used when no file is given: one
// legacy 50/50 pool and one modern standard pool sharing a token.
func Default() *Fixture {
	return &Fixture{
		Tokens:    []string{"BNT", "DAI", "LINK"},
		MaxFeePPM: 300000,
		Pools: []Pool{
			{
				Symbol: "BNTDAI",
				Kind:   KindLegacy,
				FeePPM: 1000,
				Reserves: []Reserve{
					{Token: "BNT", WeightPPM: 500000, Balance: "1000000"},
					{Token: "DAI", WeightPPM: 500000, Balance: "2500000"},
				},
			},
			{
				Symbol: "DAILINK",
				Kind:   KindStandardPool,
				FeePPM: 2000,
				Reserves: []Reserve{
					{Token: "DAI", WeightPPM: 500000, Balance: "40000"},
					{Token: "LINK", WeightPPM: 500000, Balance: "75000"},
				},
			},
		},
	}
}

// Command console builds an in-memory converter deployment from a fixture,
// prints the lens view of every pool, migrates the legacy converters
// through the upgrader and prints the resulting diff.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"os"
	"text/tabwriter"

	"github.com/Kr1ptal/bancor-converter-go/cmd/console/config"
	"github.com/Kr1ptal/bancor-converter-go/contracts/anchor"
	"github.com/Kr1ptal/bancor-converter-go/contracts/converter"
	"github.com/Kr1ptal/bancor-converter-go/contracts/registry"
	"github.com/Kr1ptal/bancor-converter-go/contracts/token"
	"github.com/Kr1ptal/bancor-converter-go/lens"
	"github.com/Kr1ptal/bancor-converter-go/upgrader"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Fixed addresses for the infrastructure contracts; tokens, anchors and
// converters are allocated from the ranges below in fixture order.
var (
	registryAddr     = common.HexToAddress("0x01")
	convRegistryAddr = common.HexToAddress("0x02")
	factoryAddr      = common.HexToAddress("0x03")
	upgraderAddr     = common.HexToAddress("0x04")
	demoOwner        = common.HexToAddress("0xd0")

	tokenBase  = uint64(0x100)
	anchorBase = uint64(0x200)
	convBase   = uint64(0x300)
)

// deployment is the fully wired in-memory world the console operates on.
type deployment struct {
	registry     *registry.ContractRegistry
	deployments  *registry.Deployments
	convRegistry *registry.ConverterRegistry
	tokens       map[string]*token.Token
	symbols      map[common.Address]string
	legacy       []common.Address
	lens         *lens.PoolLens
	upgrader     *upgrader.Upgrader
}

func addrAt(base, i uint64) common.Address {
	return common.BigToAddress(new(big.Int).SetUint64(base + i))
}

func build(fixture *config.Fixture, logger *slog.Logger, reg prometheus.Registerer) (*deployment, error) {
	d := &deployment{
		registry:     registry.NewContractRegistry(registryAddr),
		deployments:  registry.NewDeployments(),
		convRegistry: registry.NewConverterRegistry(convRegistryAddr),
		tokens:       make(map[string]*token.Token),
		symbols:      make(map[common.Address]string),
	}
	if err := d.deployments.Register(convRegistryAddr, d.convRegistry); err != nil {
		return nil, err
	}
	d.registry.Register(registry.ConverterRegistryName, convRegistryAddr)

	native := token.NewNative()
	d.tokens["ETH"] = native
	d.symbols[native.Address()] = "ETH"
	if err := d.deployments.Register(native.Address(), native); err != nil {
		return nil, err
	}
	for i, symbol := range fixture.Tokens {
		tok := token.New(addrAt(tokenBase, uint64(i)), symbol)
		d.tokens[symbol] = tok
		d.symbols[tok.Address()] = symbol
		if err := d.deployments.Register(tok.Address(), tok); err != nil {
			return nil, err
		}
	}

	tokenResolver := func(addr common.Address) (token.ReserveToken, error) {
		return d.deployments.TokenAt(addr)
	}
	anchorResolver := func(addr common.Address) (*anchor.Anchor, error) {
		return d.deployments.AnchorAt(addr)
	}

	factory := converter.NewFactory(factoryAddr, anchorResolver, tokenResolver)
	if err := d.deployments.Register(factoryAddr, factory); err != nil {
		return nil, err
	}
	d.registry.Register(registry.ConverterFactoryName, factoryAddr)

	for i, pool := range fixture.Pools {
		convAddr := addrAt(convBase, uint64(i))
		anch := anchor.New(addrAt(anchorBase, uint64(i)), pool.Symbol, convAddr)
		if err := d.deployments.Register(anch.Address(), anch); err != nil {
			return nil, err
		}

		var conv converter.Converter
		switch pool.Kind {
		case config.KindLegacy:
			legacy, err := converter.NewLegacyConverter(convAddr, demoOwner, anch, registryAddr, 23, fixture.MaxFeePPM, tokenResolver)
			if err != nil {
				return nil, err
			}
			conv = legacy
			d.legacy = append(d.legacy, convAddr)
		case config.KindLiquidityPool:
			conv = converter.NewLiquidityPoolConverter(convAddr, demoOwner, anch, registryAddr, fixture.MaxFeePPM, tokenResolver)
		case config.KindStandardPool:
			conv = converter.NewStandardPoolConverter(convAddr, demoOwner, anch, registryAddr, fixture.MaxFeePPM, tokenResolver)
		}

		for _, r := range pool.Reserves {
			tok := d.tokens[r.Token]
			if err := conv.AddReserve(demoOwner, tok.Address(), r.WeightPPM); err != nil {
				return nil, err
			}
			balance, err := r.ParsedBalance()
			if err != nil {
				return nil, err
			}
			if err := tok.Mint(convAddr, balance); err != nil {
				return nil, err
			}
		}
		if err := conv.SetConversionFee(demoOwner, pool.FeePPM); err != nil {
			return nil, err
		}
		if err := d.deployments.Register(convAddr, conv); err != nil {
			return nil, err
		}
		d.convRegistry.AddAnchor(anch.Address())
	}

	poolLens, err := lens.New(lens.Config{
		Registry:    d.registry,
		Deployments: d.deployments,
		Logger:      logger.With("component", "lens"),
		Registerer:  reg,
	})
	if err != nil {
		return nil, err
	}
	d.lens = poolLens

	up, err := upgrader.New(upgrader.Config{
		Address:     upgraderAddr,
		Registry:    d.registry,
		Deployments: d.deployments,
		Logger:      logger.With("component", "upgrader"),
		Registerer:  reg,
	})
	if err != nil {
		return nil, err
	}
	d.upgrader = up
	d.registry.Register(registry.ConverterUpgraderName, upgraderAddr)
	return d, nil
}

func (d *deployment) symbolOf(addr common.Address) string {
	if symbol, ok := d.symbols[addr]; ok {
		return symbol
	}
	return addr.Hex()
}

func printSnapshots(d *deployment, snapshots []lens.PoolSnapshot) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ANCHOR\tCONVERTER\tPAIR\tRESERVE0\tRESERVE1\tFEE(PPM)")
	for _, s := range snapshots {
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\t%s\t%d\n",
			s.Anchor.Hex(), s.Converter.Hex(),
			d.symbolOf(s.Token0), d.symbolOf(s.Token1),
			s.Reserve0, s.Reserve1, s.FeePPM,
		)
	}
	w.Flush()
}

// upgradeLegacy walks every legacy converter through the full migration:
// propose ownership to the upgrader, run the upgrade and have the owner
// accept both converters back.
func (d *deployment) upgradeLegacy(logger *slog.Logger) error {
	for _, oldAddr := range d.legacy {
		old, err := d.deployments.ConverterAt(oldAddr)
		if err != nil {
			return err
		}
		if err := old.TransferOwnership(demoOwner, d.upgrader.Address()); err != nil {
			return err
		}
		newAddr, err := d.upgrader.Upgrade(oldAddr)
		if err != nil {
			return err
		}
		if err := old.AcceptOwnership(demoOwner); err != nil {
			return err
		}
		newConv, err := d.deployments.ConverterAt(newAddr)
		if err != nil {
			return err
		}
		if err := newConv.AcceptOwnership(demoOwner); err != nil {
			return err
		}
		logger.Info("migrated legacy converter", "old", oldAddr, "new", newAddr)
	}
	return nil
}

func loadFixture() (*config.Fixture, error) {
	fixturePath := flag.String("fixture", "", "Path to a YAML fixture; built-in demo fixture when empty.")
	flag.Parse()
	if *fixturePath == "" {
		return config.Default(), nil
	}
	log.Printf("Loading fixture from: %s", *fixturePath)
	return config.Load(*fixturePath)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	fixture, err := loadFixture()
	if err != nil {
		logger.Error("failed to load fixture", "error", err)
		os.Exit(1)
	}

	d, err := build(fixture, logger, prometheus.NewRegistry())
	if err != nil {
		logger.Error("failed to build deployment", "error", err)
		os.Exit(1)
	}

	upgradeCh := make(chan upgrader.ConverterUpgrade, len(fixture.Pools))
	sub := d.upgrader.SubscribeUpgrades(upgradeCh)
	defer sub.Unsubscribe()

	before, err := d.lens.PoolSnapshots()
	if err != nil {
		logger.Error("snapshot failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(":: pools before upgrade ::")
	printSnapshots(d, before)

	if err := d.upgradeLegacy(logger); err != nil {
		logger.Error("upgrade failed", "error", err)
		os.Exit(1)
	}
	close(upgradeCh)
	for upgrade := range upgradeCh {
		fmt.Printf("upgraded %s -> %s\n", upgrade.OldConverter.Hex(), upgrade.NewConverter.Hex())
	}

	after, err := d.lens.PoolSnapshots()
	if err != nil {
		logger.Error("snapshot failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("\n:: pools after upgrade ::")
	printSnapshots(d, after)

	diff := lens.Diff(before, after)
	fmt.Printf("\n:: diff: %d added, %d updated, %d removed ::\n",
		len(diff.Additions), len(diff.Updates), len(diff.Deletions))
}

package upgrader

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// ConverterOwned is emitted when the upgrader accepts ownership of a
// converter that is about to be migrated.
type ConverterOwned struct {
	Converter common.Address `json:"converter"`
	Owner     common.Address `json:"owner"`
}

// ConverterUpgrade is emitted when a migration completes. It is the
// durable, queryable record of each upgrade.
type ConverterUpgrade struct {
	OldConverter common.Address `json:"oldConverter"`
	NewConverter common.Address `json:"newConverter"`
}

// SubscribeOwned delivers a ConverterOwned each time the upgrader takes
// ownership of a converter.
func (u *Upgrader) SubscribeOwned(ch chan<- ConverterOwned) event.Subscription {
	return u.ownedFeed.Subscribe(ch)
}

// SubscribeUpgrades delivers a ConverterUpgrade for every completed
// migration.
func (u *Upgrader) SubscribeUpgrades(ch chan<- ConverterUpgrade) event.Subscription {
	return u.upgradeFeed.Subscribe(ch)
}

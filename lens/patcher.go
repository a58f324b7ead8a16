package lens

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// deepCopySnapshot creates a new PoolSnapshot with its own memory for the
// *big.Int reserves. This keeps a patched batch from sharing memory with
// its predecessor.
func deepCopySnapshot(s PoolSnapshot) PoolSnapshot {
	snapshot := s
	if s.Reserve0 != nil {
		snapshot.Reserve0 = new(big.Int).Set(s.Reserve0)
	}
	if s.Reserve1 != nil {
		snapshot.Reserve1 = new(big.Int).Set(s.Reserve1)
	}
	return snapshot
}

// Patch constructs a new snapshot batch by applying a diff to a previous
// batch. The result shares no memory with the input; both remain usable.
func Patch(prev []PoolSnapshot, diff SnapshotDiff) []PoolSnapshot {
	byAnchor := make(map[common.Address]PoolSnapshot, len(prev))
	order := make([]common.Address, 0, len(prev)+len(diff.Additions))
	for _, snapshot := range prev {
		byAnchor[snapshot.Anchor] = deepCopySnapshot(snapshot)
		order = append(order, snapshot.Anchor)
	}

	for _, anchor := range diff.Deletions {
		delete(byAnchor, anchor)
	}
	for _, snapshot := range diff.Updates {
		byAnchor[snapshot.Anchor] = deepCopySnapshot(snapshot)
	}
	for _, snapshot := range diff.Additions {
		if _, exists := byAnchor[snapshot.Anchor]; !exists {
			order = append(order, snapshot.Anchor)
		}
		byAnchor[snapshot.Anchor] = deepCopySnapshot(snapshot)
	}

	// Rebuild in stable order: surviving snapshots first in their previous
	// order, additions appended in diff order.
	batch := make([]PoolSnapshot, 0, len(byAnchor))
	for _, anchor := range order {
		if snapshot, exists := byAnchor[anchor]; exists {
			batch = append(batch, snapshot)
		}
	}
	return batch
}

package lens

import "github.com/ethereum/go-ethereum/common"

// --- Diff Structures with Helper Methods ---

// SnapshotDiff summarizes the changes between two snapshot batches, keyed
// by anchor address. Deletions carry only the anchor.
type SnapshotDiff struct {
	Additions []PoolSnapshot   `json:"additions,omitempty"`
	Updates   []PoolSnapshot   `json:"updates,omitempty"`
	Deletions []common.Address `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d SnapshotDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// Diff calculates the difference between two snapshot batches. The logic
// follows the standard pattern for diffing lists of keyed objects:
// 1. Convert both batches into maps keyed by anchor for O(1) lookups.
// 2. Iterate the new map to find additions and updates.
// 3. Iterate the old map to find deletions.
func Diff(old, new []PoolSnapshot) SnapshotDiff {
	oldByAnchor := make(map[common.Address]PoolSnapshot, len(old))
	for _, snapshot := range old {
		oldByAnchor[snapshot.Anchor] = snapshot
	}

	newByAnchor := make(map[common.Address]PoolSnapshot, len(new))
	for _, snapshot := range new {
		newByAnchor[snapshot.Anchor] = snapshot
	}

	var additions []PoolSnapshot
	var updates []PoolSnapshot
	var deletions []common.Address

	for anchor, newSnapshot := range newByAnchor {
		oldSnapshot, exists := oldByAnchor[anchor]
		if !exists {
			additions = append(additions, newSnapshot)
			continue
		}
		if changed(oldSnapshot, newSnapshot) {
			updates = append(updates, newSnapshot)
		}
	}

	for anchor := range oldByAnchor {
		if _, exists := newByAnchor[anchor]; !exists {
			deletions = append(deletions, anchor)
		}
	}

	return SnapshotDiff{
		Additions: additions,
		Updates:   updates,
		Deletions: deletions,
	}
}

// changed performs a manual field check rather than reflect.DeepEqual. The
// converter address changes on upgrade, reserves change on every swap, and
// the fee can be reconfigured; the anchor is the map key and needs no check.
func changed(old, new PoolSnapshot) bool {
	if old.Converter != new.Converter ||
		old.Token0 != new.Token0 ||
		old.Token1 != new.Token1 ||
		old.FeePPM != new.FeePPM {
		return true
	}
	return old.Reserve0.Cmp(new.Reserve0) != 0 || old.Reserve1.Cmp(new.Reserve1) != 0
}

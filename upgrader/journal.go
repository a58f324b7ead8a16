package upgrader

// journal accumulates undo actions for the side effects an upgrade has
// already applied. On failure the actions run in reverse order, returning
// every touched contract to its pre-upgrade state; on success the journal
// is simply discarded.
type journal struct {
	undos []func()
}

func (j *journal) record(undo func()) {
	j.undos = append(j.undos, undo)
}

func (j *journal) revert() {
	for i := len(j.undos) - 1; i >= 0; i-- {
		j.undos[i]()
	}
	j.undos = nil
}

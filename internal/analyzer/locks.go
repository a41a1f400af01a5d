package analyzer

import (
	"fmt"

	"github.com/dump-analysis/pkg/model"
)

// lockHolder returns the thread holding the lock t waits on.
// The parser-resolved owner wins; otherwise the snapshot's holders are searched.
func lockHolder(snap *model.Snapshot, t *model.ThreadRecord) (*model.ThreadRecord, bool) {
	if t.WaitingOn == nil {
		return nil, false
	}
	if t.LockOwnerID != 0 && t.LockOwnerID != t.ID {
		if owner, ok := snap.ThreadByID(t.LockOwnerID); ok {
			return owner, true
		}
	}
	for _, candidate := range snap.Threads {
		if candidate.ID != t.ID && candidate.Holds(t.WaitingOn.ID) {
			return candidate, true
		}
	}
	return nil, false
}

// waitsFor returns the thread t cannot progress without. Only BLOCKED
// monitor waits and parks on an owned synchronizer count.
func waitsFor(snap *model.Snapshot, t *model.ThreadRecord) (*model.ThreadRecord, bool) {
	owner, ok := lockHolder(snap, t)
	if !ok {
		return nil, false
	}
	if t.State == model.StateBlocked || holdsSynchronizer(owner, t.WaitingOn.ID) {
		return owner, true
	}
	return nil, false
}

func holdsSynchronizer(t *model.ThreadRecord, lockID string) bool {
	for _, l := range t.LockedSynchronizers {
		if l.ID == lockID {
			return true
		}
	}
	return false
}

// threadLabel renders a thread the way jstack names it: "name" #id.
func threadLabel(t *model.ThreadRecord) string {
	return fmt.Sprintf("%q #%d", t.Name, t.ID)
}

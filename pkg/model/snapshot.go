// Package model defines the core data structures used throughout the application.
package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ThreadState represents the lifecycle state of a JVM thread.
type ThreadState string

const (
	StateNew          ThreadState = "NEW"
	StateRunnable     ThreadState = "RUNNABLE"
	StateBlocked      ThreadState = "BLOCKED"
	StateWaiting      ThreadState = "WAITING"
	StateTimedWaiting ThreadState = "TIMED_WAITING"
	StateTerminated   ThreadState = "TERMINATED"
	StateUnknown      ThreadState = "UNKNOWN"
)

// AllThreadStates returns every known state in display order.
func AllThreadStates() []ThreadState {
	return []ThreadState{
		StateRunnable,
		StateBlocked,
		StateWaiting,
		StateTimedWaiting,
		StateNew,
		StateTerminated,
		StateUnknown,
	}
}

// ParseThreadState parses a state name case-insensitively.
// Unrecognized values map to StateUnknown.
func ParseThreadState(s string) ThreadState {
	switch ThreadState(strings.ToUpper(strings.TrimSpace(s))) {
	case StateNew:
		return StateNew
	case StateRunnable:
		return StateRunnable
	case StateBlocked:
		return StateBlocked
	case StateWaiting:
		return StateWaiting
	case StateTimedWaiting:
		return StateTimedWaiting
	case StateTerminated:
		return StateTerminated
	default:
		return StateUnknown
	}
}

// String returns the string representation of ThreadState.
func (s ThreadState) String() string {
	return string(s)
}

// ThreadID identifies a thread within one snapshot.
// Zero means unknown.
type ThreadID int64

// String returns the decimal form of the id.
func (id ThreadID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Frame granularities used when aggregating stack frames.
const (
	GranularityClass  = "class"
	GranularityMethod = "method"
	GranularityLine   = "line"
)

// StackFrame is one element of a thread's call stack.
type StackFrame struct {
	Class  string `json:"class"`
	Method string `json:"method"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Native bool   `json:"native,omitempty"`
}

// Function returns the fully qualified method name, e.g. "java.lang.Object.wait".
func (f StackFrame) Function() string {
	if f.Class == "" {
		return f.Method
	}
	return f.Class + "." + f.Method
}

// Key returns the aggregation key for the given granularity.
// Unknown granularities fall back to line granularity.
func (f StackFrame) Key(granularity string) string {
	switch granularity {
	case GranularityClass:
		return f.Class
	case GranularityMethod:
		return f.Function()
	default:
		if f.Line > 0 {
			return f.Function() + ":" + strconv.Itoa(f.Line)
		}
		return f.Function()
	}
}

// String renders the frame the way jstack does.
func (f StackFrame) String() string {
	switch {
	case f.Native:
		return f.Function() + "(Native Method)"
	case f.File != "" && f.Line > 0:
		return fmt.Sprintf("%s(%s:%d)", f.Function(), f.File, f.Line)
	case f.File != "":
		return fmt.Sprintf("%s(%s)", f.Function(), f.File)
	default:
		return f.Function() + "(Unknown Source)"
	}
}

// LockRef identifies a monitor or ownable synchronizer.
type LockRef struct {
	ID    string `json:"id"`
	Class string `json:"class,omitempty"`
}

// String renders the lock as "<0x...> (a java.lang.Object)".
func (l LockRef) String() string {
	if l.Class == "" {
		return "<" + l.ID + ">"
	}
	return fmt.Sprintf("<%s> (a %s)", l.ID, l.Class)
}

// ThreadKey is the compound key used to correlate a thread across snapshots.
// Thread ids can be reused after a thread terminates, so the name is part of the key.
type ThreadKey struct {
	ID   ThreadID
	Name string
}

// String returns "name#id".
func (k ThreadKey) String() string {
	return k.Name + "#" + k.ID.String()
}

// ThreadRecord is one thread within a snapshot.
type ThreadRecord struct {
	ID       ThreadID     `json:"id"`
	NativeID string       `json:"nid,omitempty"`
	Name     string       `json:"name"`
	Daemon   bool         `json:"daemon,omitempty"`
	State    ThreadState  `json:"state"`
	Frames   []StackFrame `json:"frames,omitempty"`

	// WaitingOn is the lock the thread is trying to acquire, if any.
	WaitingOn *LockRef `json:"waiting_on,omitempty"`
	// LockOwnerID is the owner of WaitingOn when known, zero otherwise.
	LockOwnerID ThreadID `json:"lock_owner_id,omitempty"`

	LockedMonitors      []LockRef `json:"locked_monitors,omitempty"`
	LockedSynchronizers []LockRef `json:"locked_synchronizers,omitempty"`
}

// Key returns the cross-snapshot correlation key.
func (t *ThreadRecord) Key() ThreadKey {
	return ThreadKey{ID: t.ID, Name: t.Name}
}

// TopFrame returns the most recent frame.
func (t *ThreadRecord) TopFrame() (StackFrame, bool) {
	if len(t.Frames) == 0 {
		return StackFrame{}, false
	}
	return t.Frames[0], true
}

// Holds reports whether the thread holds the lock with the given id.
func (t *ThreadRecord) Holds(lockID string) bool {
	for _, l := range t.LockedMonitors {
		if l.ID == lockID {
			return true
		}
	}
	for _, l := range t.LockedSynchronizers {
		if l.ID == lockID {
			return true
		}
	}
	return false
}

// Snapshot is one point-in-time thread dump, optionally paired with a class histogram.
// A Snapshot is never modified after it has been built.
type Snapshot struct {
	Index      int             `json:"index"`
	CapturedAt time.Time       `json:"captured_at"`
	Source     string          `json:"source,omitempty"`
	JVMInfo    string          `json:"jvm_info,omitempty"`
	Threads    []*ThreadRecord `json:"threads"`
	Histogram  *ClassHistogram `json:"histogram,omitempty"`
	Raw        string          `json:"-"`
}

// ThreadByID returns the thread with the given id.
func (s *Snapshot) ThreadByID(id ThreadID) (*ThreadRecord, bool) {
	for _, t := range s.Threads {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// LockOwner returns the thread currently holding the lock.
func (s *Snapshot) LockOwner(lockID string) (*ThreadRecord, bool) {
	for _, t := range s.Threads {
		if t.Holds(lockID) {
			return t, true
		}
	}
	return nil, false
}

// CountByState returns the number of threads per state.
func (s *Snapshot) CountByState() map[ThreadState]int {
	counts := make(map[ThreadState]int)
	for _, t := range s.Threads {
		counts[t.State]++
	}
	return counts
}

// ThreadsInState returns the threads in any of the given states, ordered by id.
func (s *Snapshot) ThreadsInState(states ...ThreadState) []*ThreadRecord {
	want := make(map[ThreadState]bool, len(states))
	for _, st := range states {
		want[st] = true
	}

	result := make([]*ThreadRecord, 0)
	for _, t := range s.Threads {
		if want[t.State] {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Label returns a short human readable description of the snapshot.
func (s *Snapshot) Label() string {
	label := fmt.Sprintf("dump %d", s.Index+1)
	if !s.CapturedAt.IsZero() {
		label += " @ " + s.CapturedAt.Format("2006-01-02 15:04:05")
	}
	if s.Source != "" {
		label += " (" + s.Source + ")"
	}
	return label
}

package testutil

import (
	"strconv"
	"strings"
	"time"

	"github.com/dump-analysis/pkg/model"
)

// Frame builds a frame from "pkg.Class.method" or "pkg.Class.method:line".
func Frame(spec string) model.StackFrame {
	var frame model.StackFrame
	if colon := strings.LastIndex(spec, ":"); colon > 0 {
		if line, err := strconv.Atoi(spec[colon+1:]); err == nil {
			frame.Line = line
			spec = spec[:colon]
		}
	}
	frame.Method = spec
	if dot := strings.LastIndex(spec, "."); dot > 0 {
		frame.Class = spec[:dot]
		frame.Method = spec[dot+1:]
	}
	if frame.Line > 0 {
		frame.File = frame.Class[strings.LastIndex(frame.Class, ".")+1:] + ".java"
	}
	return frame
}

// Thread builds a thread record. Frames are listed most recent first.
func Thread(id int64, name string, state model.ThreadState, frames ...string) *model.ThreadRecord {
	t := &model.ThreadRecord{
		ID:    model.ThreadID(id),
		Name:  name,
		State: state,
	}
	for _, f := range frames {
		t.Frames = append(t.Frames, Frame(f))
	}
	return t
}

// WaitingFor marks t as waiting on lockID, owned by owner (0 when unknown).
func WaitingFor(t *model.ThreadRecord, lockID string, owner int64) *model.ThreadRecord {
	t.WaitingOn = &model.LockRef{ID: lockID, Class: "java.lang.Object"}
	t.LockOwnerID = model.ThreadID(owner)
	return t
}

// Holding adds monitors held by t.
func Holding(t *model.ThreadRecord, lockIDs ...string) *model.ThreadRecord {
	for _, id := range lockIDs {
		t.LockedMonitors = append(t.LockedMonitors, model.LockRef{ID: id, Class: "java.lang.Object"})
	}
	return t
}

// Snapshot builds a snapshot captured index seconds after a fixed base time.
func Snapshot(index int, threads ...*model.ThreadRecord) *model.Snapshot {
	if threads == nil {
		threads = make([]*model.ThreadRecord, 0)
	}
	return &model.Snapshot{
		Index:      index,
		CapturedAt: time.Date(2024, 3, 5, 15, 0, index, 0, time.UTC),
		Threads:    threads,
	}
}

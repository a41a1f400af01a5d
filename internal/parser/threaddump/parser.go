// Package threaddump parses HotSpot thread dumps as printed by `jstack -l` and
// `jcmd <pid> Thread.print -l`.
package threaddump

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dump-analysis/internal/parser"
	"github.com/dump-analysis/pkg/model"
)

var (
	timestampRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
	headerRegex    = regexp.MustCompile(`^"(.*)"\s+(.*)$`)
	javaIDRegex    = regexp.MustCompile(`(?:^|\s)#(\d+)(?:\s|$)`)
	daemonRegex    = regexp.MustCompile(`(?:^|\s)daemon(?:\s|$)`)
	nidRegex       = regexp.MustCompile(`nid=(0x[0-9a-fA-F]+|\d+)(?:\s+(.*))?$`)
	stateRegex     = regexp.MustCompile(`^java\.lang\.Thread\.State:\s*([A-Z_]+)`)
	frameRegex     = regexp.MustCompile(`^at\s+(.+?)\((.*)\)$`)
	lockRegex      = regexp.MustCompile(`^-\s+(waiting to lock|waiting to re-lock in wait\(\)|parking to wait for|waiting on|locked|eliminated)\s+<(0x[0-9a-fA-F]+)>(?:\s+\(a\s+([^)]+)\))?`)
	ownableRegex   = regexp.MustCompile(`^-\s+<(0x[0-9a-fA-F]+)>(?:\s+\(a\s+([^)]+)\))?`)
	deadlockRegex  = regexp.MustCompile(`^Found (one|\d+) Java-level deadlocks?:?$`)
	addressSuffix  = regexp.MustCompile(`\s*\[0x[0-9a-fA-F]+\]$`)
)

// Parser parses thread dump text.
type Parser struct {
	opts *parser.ParseOptions
}

// NewParser creates a new thread dump parser. Nil options use defaults.
func NewParser(opts *parser.ParseOptions) *Parser {
	return &Parser{opts: opts.Normalize()}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "threaddump"
}

// Parse reads one thread dump. Unrecognized lines are skipped.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) (*model.Snapshot, error) {
	b := newBuilder()
	var raw strings.Builder
	err := parser.ReadLines(ctx, p.Name(), reader, p.opts.MaxLineSize, &b.stats, func(line string) {
		raw.WriteString(line)
		raw.WriteByte('\n')
		b.feed(line)
	})
	if err != nil {
		return nil, err
	}

	snap := b.finish(raw.String())
	b.stats.Log(p.opts.Logger.WithField("threads", len(snap.Threads)), p.Name())
	return snap, nil
}

// Parse parses thread dump text with default options. It never fails.
func Parse(text string) *model.Snapshot {
	b := newBuilder()
	for _, line := range strings.Split(text, "\n") {
		b.feed(line)
	}
	return b.finish(text)
}

// ParseReader parses a thread dump from a reader with default options.
func ParseReader(ctx context.Context, reader io.Reader) (*model.Snapshot, error) {
	return NewParser(nil).Parse(ctx, reader)
}

// pendingThread carries header facts that are resolved once the whole dump is read.
type pendingThread struct {
	record     *model.ThreadRecord
	explicitID bool
	nativeID   int64
	hasNative  bool
}

type builder struct {
	snap            *model.Snapshot
	threads         []*pendingThread
	current         *pendingThread
	inSynchronizers bool
	ignoring        bool
	stats           parser.Stats
}

func newBuilder() *builder {
	return &builder{
		snap: &model.Snapshot{Threads: make([]*model.ThreadRecord, 0)},
	}
}

func (b *builder) feed(line string) {
	b.stats.Lines++
	trimmed := strings.TrimSpace(strings.TrimRight(line, "\r"))

	if strings.HasPrefix(trimmed, "Full thread dump") {
		b.current = nil
		b.ignoring = false
		info := strings.TrimSpace(strings.TrimPrefix(trimmed, "Full thread dump"))
		b.snap.JVMInfo = strings.TrimSuffix(info, ":")
		b.stats.Parsed++
		return
	}
	if b.ignoring {
		b.stats.Skipped++
		return
	}

	switch {
	case trimmed == "":
		b.inSynchronizers = false
		b.stats.Skipped++
	case b.snap.CapturedAt.IsZero() && timestampRegex.MatchString(trimmed):
		if ts, err := time.ParseInLocation("2006-01-02 15:04:05", trimmed, time.Local); err == nil {
			b.snap.CapturedAt = ts
		}
		b.stats.Parsed++
	case strings.HasPrefix(trimmed, "JNI global refs"), deadlockRegex.MatchString(trimmed):
		// The trailer and the JVM's own deadlock report repeat stacks we already have.
		b.current = nil
		b.ignoring = true
		b.stats.Skipped++
	case headerRegex.MatchString(trimmed):
		b.startThread(trimmed)
	case b.current == nil:
		b.stats.Skipped++
	default:
		if b.feedThreadLine(trimmed) {
			b.stats.Parsed++
		} else {
			b.stats.Skipped++
		}
	}
}

func (b *builder) startThread(header string) {
	m := headerRegex.FindStringSubmatch(header)
	rest := m[2]

	t := &pendingThread{
		record: &model.ThreadRecord{
			Name:   m[1],
			Daemon: daemonRegex.MatchString(rest),
			State:  model.StateUnknown,
		},
	}

	if idm := javaIDRegex.FindStringSubmatch(rest); idm != nil {
		if id, err := strconv.ParseInt(idm[1], 10, 64); err == nil {
			t.record.ID = model.ThreadID(id)
			t.explicitID = true
		}
	}

	if nm := nidRegex.FindStringSubmatch(rest); nm != nil {
		t.record.NativeID = nm[1]
		if nid, err := parseNativeID(nm[1]); err == nil {
			t.nativeID = nid
			t.hasNative = true
		}
		t.record.State = stateFromStatus(addressSuffix.ReplaceAllString(nm[2], ""))
	}

	b.threads = append(b.threads, t)
	b.current = t
	b.inSynchronizers = false
	b.stats.Parsed++
}

func (b *builder) feedThreadLine(line string) bool {
	t := b.current.record

	if m := stateRegex.FindStringSubmatch(line); m != nil {
		t.State = model.ParseThreadState(m[1])
		return true
	}
	if m := frameRegex.FindStringSubmatch(line); m != nil {
		t.Frames = append(t.Frames, parseFrame(m[1], m[2]))
		return true
	}
	if line == "Locked ownable synchronizers:" {
		b.inSynchronizers = true
		return true
	}
	if b.inSynchronizers {
		if m := ownableRegex.FindStringSubmatch(line); m != nil {
			t.LockedSynchronizers = append(t.LockedSynchronizers, model.LockRef{ID: m[1], Class: m[2]})
			return true
		}
		return line == "- None"
	}
	if m := lockRegex.FindStringSubmatch(line); m != nil {
		lock := model.LockRef{ID: m[2], Class: m[3]}
		switch m[1] {
		case "waiting to lock", "waiting to re-lock in wait()", "parking to wait for":
			t.WaitingOn = &lock
		case "waiting on":
			// Object.wait() releases the monitor; it is only contended once the thread is blocked again.
			if t.State == model.StateBlocked {
				t.WaitingOn = &lock
			}
		case "locked":
			t.LockedMonitors = append(t.LockedMonitors, lock)
		}
		return true
	}
	return false
}

// finish assigns ids to VM threads, drops duplicated ids and resolves lock owners.
func (b *builder) finish(raw string) *model.Snapshot {
	taken := make(map[model.ThreadID]bool)
	for _, t := range b.threads {
		if t.explicitID && !taken[t.record.ID] {
			taken[t.record.ID] = true
		}
	}

	seen := make(map[model.ThreadID]bool)
	var synthetic model.ThreadID
	for _, t := range b.threads {
		if !t.explicitID {
			switch {
			case t.hasNative && t.nativeID != 0 && !taken[model.ThreadID(t.nativeID)]:
				t.record.ID = model.ThreadID(t.nativeID)
			default:
				for {
					synthetic--
					if !taken[synthetic] {
						break
					}
				}
				t.record.ID = synthetic
			}
			taken[t.record.ID] = true
		}
		if seen[t.record.ID] {
			continue
		}
		seen[t.record.ID] = true
		b.snap.Threads = append(b.snap.Threads, t.record)
	}

	holders := make(map[string]model.ThreadID)
	for _, t := range b.snap.Threads {
		for _, l := range t.LockedMonitors {
			if _, ok := holders[l.ID]; !ok {
				holders[l.ID] = t.ID
			}
		}
		for _, l := range t.LockedSynchronizers {
			if _, ok := holders[l.ID]; !ok {
				holders[l.ID] = t.ID
			}
		}
	}
	for _, t := range b.snap.Threads {
		if t.WaitingOn == nil {
			continue
		}
		if owner, ok := holders[t.WaitingOn.ID]; ok && owner != t.ID {
			t.LockOwnerID = owner
		}
	}

	b.snap.Raw = raw
	return b.snap
}

func parseNativeID(s string) (int64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseInt(s[2:], 16, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}

// stateFromStatus guesses a state from the header status text for threads that
// print no java.lang.Thread.State line, such as VM and GC threads.
func stateFromStatus(status string) model.ThreadState {
	status = strings.TrimSpace(status)
	switch {
	case strings.HasPrefix(status, "runnable"):
		return model.StateRunnable
	case strings.HasPrefix(status, "waiting for monitor entry"):
		return model.StateBlocked
	case strings.HasPrefix(status, "in Object.wait()"), strings.HasPrefix(status, "waiting on condition"):
		return model.StateWaiting
	case strings.HasPrefix(status, "sleeping"):
		return model.StateTimedWaiting
	default:
		return model.StateUnknown
	}
}

// parseFrame splits "java.base@17/java.lang.Thread.sleep" and "Thread.java:42".
func parseFrame(qualified, location string) model.StackFrame {
	qualified = stripModulePrefix(qualified)

	frame := model.StackFrame{Method: qualified}
	if dot := strings.LastIndex(qualified, "."); dot > 0 {
		frame.Class = qualified[:dot]
		frame.Method = qualified[dot+1:]
	}

	switch {
	case location == "Native Method":
		frame.Native = true
	case location == "Unknown Source", location == "":
	default:
		frame.File = location
		if colon := strings.LastIndex(location, ":"); colon > 0 {
			if line, err := strconv.Atoi(location[colon+1:]); err == nil {
				frame.File = location[:colon]
				frame.Line = line
			}
		}
	}

	// The module can also appear inside the location: "(java.base@17.0.9/Native Method)".
	if slash := strings.Index(frame.File, "/"); slash >= 0 {
		rest := frame.File[slash+1:]
		frame.File = rest
		if rest == "Native Method" {
			frame.File = ""
			frame.Native = true
		}
	}
	if frame.File == "Unknown Source" {
		frame.File = ""
	}
	return frame
}

// stripModulePrefix removes "module@version/" and "loader//" prefixes while keeping
// hidden class suffixes such as "LambdaForm$DMH/0x0000000800c0c000".
func stripModulePrefix(qualified string) string {
	slash := strings.Index(qualified, "/")
	if slash < 0 {
		return qualified
	}
	rest := qualified[slash+1:]
	if strings.HasPrefix(rest, "0x") {
		return qualified
	}
	return strings.TrimLeft(rest, "/")
}

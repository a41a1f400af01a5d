package threaddump

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dump-analysis/internal/testutil"
	apperrors "github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/model"
)

func TestParser_Parse_DeadlockFixture(t *testing.T) {
	snap, err := NewParser(nil).Parse(context.Background(), testutil.LoadFixtureReader(t, "deadlock.txt"))
	require.NoError(t, err)

	assert.Equal(t, "2024-03-05 14:22:31", snap.CapturedAt.Format("2006-01-02 15:04:05"))
	assert.Equal(t, "OpenJDK 64-Bit Server VM (17.0.9+9 mixed mode, sharing)", snap.JVMInfo)
	assert.NotEmpty(t, snap.Raw)

	// The JVM's own deadlock report must not add duplicate threads.
	require.Len(t, snap.Threads, 8)

	order, ok := snap.ThreadByID(14)
	require.True(t, ok)
	assert.Equal(t, "order-worker-1", order.Name)
	assert.Equal(t, model.StateBlocked, order.State)
	assert.Equal(t, "0x1a21", order.NativeID)
	require.NotNil(t, order.WaitingOn)
	assert.Equal(t, "0x000000071a2b3c40", order.WaitingOn.ID)
	assert.Equal(t, "com.example.shop.Ledger", order.WaitingOn.Class)
	assert.Equal(t, model.ThreadID(15), order.LockOwnerID)
	assert.Equal(t, []model.LockRef{{ID: "0x000000071a2b3d10", Class: "com.example.shop.Inventory"}}, order.LockedMonitors)
	require.Len(t, order.Frames, 3)
	assert.Equal(t, model.StackFrame{
		Class:  "com.example.shop.Inventory",
		Method: "reserve",
		File:   "Inventory.java",
		Line:   88,
	}, order.Frames[0])

	ledger, ok := snap.ThreadByID(15)
	require.True(t, ok)
	assert.Equal(t, model.ThreadID(14), ledger.LockOwnerID)
}

func TestParser_Parse_OwnableSynchronizers(t *testing.T) {
	snap := Parse(testutil.LoadFixtureString(t, "deadlock.txt"))

	parked, ok := snap.ThreadByID(16)
	require.True(t, ok)
	assert.Equal(t, model.StateWaiting, parked.State)
	require.NotNil(t, parked.WaitingOn)
	assert.Equal(t, "java.util.concurrent.locks.ReentrantLock$NonfairSync", parked.WaitingOn.Class)
	assert.Equal(t, model.ThreadID(17), parked.LockOwnerID)

	holder, ok := snap.ThreadByID(17)
	require.True(t, ok)
	assert.Len(t, holder.LockedSynchronizers, 1)
	assert.True(t, holder.Holds("0x000000071a400010"))
}

func TestParser_Parse_VMThreadsUseNativeID(t *testing.T) {
	snap := Parse(testutil.LoadFixtureString(t, "deadlock.txt"))

	vm, ok := snap.ThreadByID(0x1a09)
	require.True(t, ok)
	assert.Equal(t, "VM Thread", vm.Name)
	assert.Equal(t, model.StateRunnable, vm.State)
	assert.Empty(t, vm.Frames)

	gc, ok := snap.ThreadByID(0x1a04)
	require.True(t, ok)
	assert.Equal(t, "GC Thread#0", gc.Name)
}

func TestParser_Parse_DaemonAndNativeFrames(t *testing.T) {
	snap := Parse(testutil.LoadFixtureString(t, "deadlock.txt"))

	ref, ok := snap.ThreadByID(2)
	require.True(t, ok)
	assert.True(t, ref.Daemon)
	assert.Equal(t, model.StateRunnable, ref.State)

	top, ok := ref.TopFrame()
	require.True(t, ok)
	assert.Equal(t, "java.lang.ref.Reference", top.Class)
	assert.Equal(t, "waitForReferencePendingList", top.Method)
	assert.True(t, top.Native)
	assert.Empty(t, top.File)

	main, ok := snap.ThreadByID(1)
	require.True(t, ok)
	assert.False(t, main.Daemon)
	assert.Equal(t, model.StateTimedWaiting, main.State)
}

func TestParser_Parse_Java21Header(t *testing.T) {
	snap := Parse(testutil.LoadFixtureString(t, "busy-1.txt"))

	require.Len(t, snap.Threads, 5)
	exec, ok := snap.ThreadByID(31)
	require.True(t, ok)
	assert.Equal(t, "http-nio-8080-exec-1", exec.Name)
	assert.Equal(t, "7031", exec.NativeID)
	assert.True(t, exec.Daemon)

	require.Len(t, exec.Frames, 4)
	assert.Equal(t, "com.example.report.Sanitizer", exec.Frames[2].Class)
	assert.Equal(t, "Sanitizer.java", exec.Frames[2].File)
	assert.Equal(t, "java.util.regex.Pattern$Slice", exec.Frames[0].Class)
	assert.Equal(t, 4163, exec.Frames[0].Line)

	vm, ok := snap.ThreadByID(7010)
	require.True(t, ok)
	assert.Equal(t, "VM Thread", vm.Name)
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name      string
		qualified string
		location  string
		expected  model.StackFrame
	}{
		{
			name:      "source and line",
			qualified: "com.example.Foo.bar",
			location:  "Foo.java:12",
			expected:  model.StackFrame{Class: "com.example.Foo", Method: "bar", File: "Foo.java", Line: 12},
		},
		{
			name:      "native method",
			qualified: "java.lang.Object.wait0",
			location:  "Native Method",
			expected:  model.StackFrame{Class: "java.lang.Object", Method: "wait0", Native: true},
		},
		{
			name:      "module prefix before class",
			qualified: "java.base@21/java.lang.Thread.run",
			location:  "Thread.java:1583",
			expected:  model.StackFrame{Class: "java.lang.Thread", Method: "run", File: "Thread.java", Line: 1583},
		},
		{
			name:      "loader prefix",
			qualified: "app//com.example.App.main",
			location:  "App.java:3",
			expected:  model.StackFrame{Class: "com.example.App", Method: "main", File: "App.java", Line: 3},
		},
		{
			name:      "hidden class keeps address",
			qualified: "java.lang.invoke.LambdaForm$DMH/0x0000000800c0c000.invokeVirtual",
			location:  "LambdaForm$DMH",
			expected: model.StackFrame{
				Class:  "java.lang.invoke.LambdaForm$DMH/0x0000000800c0c000",
				Method: "invokeVirtual",
				File:   "LambdaForm$DMH",
			},
		},
		{
			name:      "unknown source",
			qualified: "jdk.internal.reflect.GeneratedMethodAccessor1.invoke",
			location:  "Unknown Source",
			expected:  model.StackFrame{Class: "jdk.internal.reflect.GeneratedMethodAccessor1", Method: "invoke"},
		},
		{
			name:      "module inside location",
			qualified: "java.lang.Thread.sleep",
			location:  "java.base@17.0.9/Native Method",
			expected:  model.StackFrame{Class: "java.lang.Thread", Method: "sleep", Native: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseFrame(tt.qualified, tt.location))
		})
	}
}

func TestParse_WaitingOnOnlyWhenBlocked(t *testing.T) {
	input := `"waiter" #5 prio=5 tid=0x1 nid=0x10 in Object.wait()  [0x2]
   java.lang.Thread.State: WAITING (on object monitor)
	at java.lang.Object.wait(Native Method)
	- waiting on <0x0000000700000001> (a java.lang.Object)
	at com.example.Queue.take(Queue.java:10)
	- locked <0x0000000700000001> (a java.lang.Object)

"relocker" #6 prio=5 tid=0x2 nid=0x11 waiting for monitor entry  [0x3]
   java.lang.Thread.State: BLOCKED (on object monitor)
	at java.lang.Object.wait(Native Method)
	- waiting on <0x0000000700000002> (a java.lang.Object)
`
	snap := Parse(input)
	require.Len(t, snap.Threads, 2)

	waiter, _ := snap.ThreadByID(5)
	assert.Nil(t, waiter.WaitingOn)
	assert.Len(t, waiter.LockedMonitors, 1)

	relocker, _ := snap.ThreadByID(6)
	require.NotNil(t, relocker.WaitingOn)
	assert.Equal(t, "0x0000000700000002", relocker.WaitingOn.ID)
	assert.Equal(t, model.ThreadID(0), relocker.LockOwnerID)
}

func TestParse_DuplicateIDKeepsFirst(t *testing.T) {
	input := `"first" #7 prio=5 tid=0x1 nid=0x1 runnable
   java.lang.Thread.State: RUNNABLE

"second" #7 prio=5 tid=0x2 nid=0x2 runnable
   java.lang.Thread.State: RUNNABLE
`
	snap := Parse(input)

	require.Len(t, snap.Threads, 1)
	assert.Equal(t, "first", snap.Threads[0].Name)
}

func TestParse_SyntheticIDsWithoutNativeID(t *testing.T) {
	input := `"Attach Listener" prio=9 runnable
"Signal Dispatcher" prio=9 runnable
`
	snap := Parse(input)

	require.Len(t, snap.Threads, 2)
	assert.Equal(t, model.ThreadID(-1), snap.Threads[0].ID)
	assert.Equal(t, model.ThreadID(-2), snap.Threads[1].ID)
}

func TestParse_GarbageInput(t *testing.T) {
	snap := Parse("not a thread dump\n\tat nowhere\n- locked <0x1>\n")

	require.NotNil(t, snap)
	assert.Empty(t, snap.Threads)
	assert.True(t, snap.CapturedAt.IsZero())
}

func TestParser_Parse_SkipsOversizedLine(t *testing.T) {
	input := strings.Repeat("#", 2*1024*1024) + "\n" +
		"\"main\" #1 prio=5 os_prio=0 tid=0x1 nid=0x2 runnable [0x3]\n" +
		"   java.lang.Thread.State: RUNNABLE\n" +
		"\tat com.acme.App.main(App.java:10)\n"

	snap, err := ParseReader(context.Background(), strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, snap.Threads, 1)
	assert.Equal(t, "main", snap.Threads[0].Name)
	assert.Equal(t, model.StateRunnable, snap.Threads[0].State)
}

func TestParser_Parse_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParseReader(ctx, strings.NewReader(`"main" #1 prio=5 nid=0x1 runnable`))

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeParseError, apperrors.GetErrorCode(err))
}

func TestParser_Name(t *testing.T) {
	assert.Equal(t, "threaddump", NewParser(nil).Name())
}

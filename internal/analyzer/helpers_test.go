package analyzer

import (
	"context"

	"github.com/dump-analysis/internal/testutil"
	"github.com/dump-analysis/pkg/model"
)

// stubAnalyzer returns a fixed result and records what the runner handed it.
type stubAnalyzer struct {
	*BaseAnalyzer
	result *model.AnalyzerResult
	err    error

	calls    int
	gotDumps []*model.Snapshot
	gotOpts  Options
}

func newStub(name string, req model.DumpRequirement, result *model.AnalyzerResult, keys ...OptionKey) *stubAnalyzer {
	return &stubAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(name, req, nil, keys...),
		result:       result,
	}
}

func (s *stubAnalyzer) Analyze(ctx context.Context, dumps []*model.Snapshot, opts Options) (*model.AnalyzerResult, error) {
	s.calls++
	s.gotDumps = dumps
	s.gotOpts = opts
	return s.result, s.err
}

// twoThreadDeadlock is T1 waiting on L held by T2 and T2 waiting on M held by T1.
func twoThreadDeadlock() *model.Snapshot {
	t1 := testutil.Holding(testutil.WaitingFor(
		testutil.Thread(1, "T1", model.StateBlocked, "com.example.A.lockL:10"), "0xL", 2), "0xM")
	t2 := testutil.Holding(testutil.WaitingFor(
		testutil.Thread(2, "T2", model.StateBlocked, "com.example.B.lockM:20"), "0xM", 1), "0xL")
	return testutil.Snapshot(0, t1, t2)
}

// ring builds an n-thread cycle where thread i waits for thread i+1.
// ids lists the thread ids in ring order.
func ring(ids ...int64) *model.Snapshot {
	threads := make([]*model.ThreadRecord, len(ids))
	for i, id := range ids {
		next := ids[(i+1)%len(ids)]
		t := testutil.Thread(id, "ring-"+model.ThreadID(id).String(), model.StateBlocked, "com.example.Ring.step:1")
		testutil.WaitingFor(t, "0x"+model.ThreadID(next).String(), 0)
		testutil.Holding(t, "0x"+model.ThreadID(id).String())
		threads[i] = t
	}
	return testutil.Snapshot(0, threads...)
}

package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dump-analysis/internal/testutil"
	"github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/model"
)

func flameDumps() []*model.Snapshot {
	return []*model.Snapshot{
		testutil.Snapshot(0,
			testutil.Thread(1, "a", model.StateRunnable, "app.Leaf.work", "app.Root.run"),
			testutil.Thread(2, "b", model.StateWaiting, "app.Other.wait", "app.Root.run"),
		),
		testutil.Snapshot(1,
			testutil.Thread(1, "a", model.StateRunnable, "app.Leaf.work", "app.Root.run"),
		),
	}
}

func TestFlameAnalyzer_Analyze_Tree(t *testing.T) {
	a := NewFlameAnalyzer(nil)
	opts := DefaultOptions().Project(a.SupportedOptions())

	result, err := a.Analyze(context.Background(), flameDumps(), opts)

	require.NoError(t, err)
	assert.True(t, result.ShouldDisplay)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "3 100.0% app.Root.run\n  2 66.7% app.Leaf.work\n  1 33.3% app.Other.wait\n", result.Output)
}

func TestFlameAnalyzer_Analyze_Folded(t *testing.T) {
	result, err := NewFlameAnalyzer(nil).Analyze(context.Background(), flameDumps(), Options{FlameFormat: FlameFormatFolded})

	require.NoError(t, err)
	assert.Equal(t, "app.Root.run;app.Leaf.work 2\napp.Root.run;app.Other.wait 1\n", result.Output)
}

func TestFlameAnalyzer_Analyze_MinPercent(t *testing.T) {
	result, err := NewFlameAnalyzer(nil).Analyze(context.Background(), flameDumps(), Options{MinPercent: 50})

	require.NoError(t, err)
	assert.NotContains(t, result.Output, "app.Other.wait")
	assert.Contains(t, result.Output, "app.Leaf.work")
}

func TestFlameAnalyzer_Analyze_SingleDump(t *testing.T) {
	result, err := NewFlameAnalyzer(nil).Analyze(context.Background(), flameDumps()[1:], Options{})

	require.NoError(t, err)
	assert.Equal(t, "1 100.0% app.Root.run\n  1 100.0% app.Leaf.work\n", result.Output)
}

func TestFlameAnalyzer_Analyze_Empty(t *testing.T) {
	tests := []struct {
		name  string
		dumps []*model.Snapshot
	}{
		{"no dumps", nil},
		{"no frames", []*model.Snapshot{testutil.Snapshot(0, testutil.Thread(1, "VM Thread", model.StateRunnable))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewFlameAnalyzer(nil).Analyze(context.Background(), tt.dumps, Options{})

			require.NoError(t, err)
			assert.False(t, result.ShouldDisplay)
		})
	}
}

func TestFlameAnalyzer_Analyze_InvalidFormat(t *testing.T) {
	_, err := NewFlameAnalyzer(nil).Analyze(context.Background(), flameDumps(), Options{FlameFormat: "svg"})

	assert.True(t, errors.IsConfigError(err))
}

func TestBuildFlameGraph_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildFlameGraph(ctx, flameDumps(), 0)

	assert.True(t, errors.IsAnalysisError(err))
	assert.ErrorIs(t, err, context.Canceled)
}

package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dump-analysis/internal/testutil"
	"github.com/dump-analysis/pkg/model"
)

func busySnapshots() []*model.Snapshot {
	return []*model.Snapshot{
		testutil.Snapshot(0,
			testutil.Thread(1, "worker-1", model.StateRunnable, "com.a.Hot.spin:10", "com.a.Hot.loop:20"),
			testutil.Thread(2, "worker-2", model.StateRunnable, "com.a.Hot.spin:10", "com.a.Hot.loop:20"),
			testutil.Thread(3, "idle", model.StateWaiting, "java.lang.Object.wait"),
		),
		testutil.Snapshot(1,
			testutil.Thread(1, "worker-1", model.StateRunnable, "com.a.Hot.spin:10", "com.a.Hot.loop:20"),
			testutil.Thread(2, "worker-2", model.StateRunnable, "com.a.Cold.read:5", "com.a.Hot.loop:21"),
			testutil.Thread(3, "idle", model.StateWaiting, "java.lang.Object.wait"),
		),
	}
}

func TestTopFramesCalculator_Calculate_Basic(t *testing.T) {
	calc := NewTopFramesCalculator(WithTopN(3))
	result := calc.Calculate(busySnapshots())

	require.NotNil(t, result)
	assert.Equal(t, int64(4), result.TotalSamples)
	require.Len(t, result.TopFrames, 2)

	assert.Equal(t, "com.a.Hot.spin:10", result.TopFrames[0].Key)
	assert.Equal(t, int64(3), result.TopFrames[0].Samples)
	assert.InDelta(t, 75.0, result.TopFrames[0].Percent, 0.01)

	assert.Equal(t, "com.a.Cold.read:5", result.TopFrames[1].Key)
	assert.Equal(t, int64(1), result.TopFrames[1].Samples)
}

func TestTopFramesCalculator_Calculate_Granularity(t *testing.T) {
	tests := []struct {
		name        string
		granularity string
		expectedTop string
		expectedN   int64
	}{
		{"class", model.GranularityClass, "com.a.Hot", 3},
		{"method", model.GranularityMethod, "com.a.Hot.spin", 3},
		{"line", model.GranularityLine, "com.a.Hot.spin:10", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewTopFramesCalculator(WithGranularity(tt.granularity)).Calculate(busySnapshots())
			require.NotEmpty(t, result.TopFrames)
			assert.Equal(t, tt.expectedTop, result.TopFrames[0].Key)
			assert.Equal(t, tt.expectedN, result.TopFrames[0].Samples)
		})
	}
}

func TestTopFramesCalculator_Calculate_StackDepthDedupes(t *testing.T) {
	// With class granularity and the whole stack, com.a.Hot appears twice per
	// stack but is counted once.
	calc := NewTopFramesCalculator(WithGranularity(model.GranularityClass), WithStackDepth(0))
	result := calc.Calculate(busySnapshots())

	require.NotEmpty(t, result.TopFrames)
	assert.Equal(t, "com.a.Hot", result.TopFrames[0].Key)
	assert.Equal(t, int64(4), result.TopFrames[0].Samples)
	assert.InDelta(t, 100.0, result.TopFrames[0].Percent, 0.01)
}

func TestTopFramesCalculator_Calculate_TiesByKey(t *testing.T) {
	snaps := []*model.Snapshot{
		testutil.Snapshot(0,
			testutil.Thread(1, "a", model.StateRunnable, "z.Z.run"),
			testutil.Thread(2, "b", model.StateRunnable, "a.A.run"),
			testutil.Thread(3, "c", model.StateRunnable, "m.M.run"),
		),
	}

	result := NewTopFramesCalculator().Calculate(snaps)

	require.Len(t, result.TopFrames, 3)
	assert.Equal(t, "a.A.run", result.TopFrames[0].Key)
	assert.Equal(t, "m.M.run", result.TopFrames[1].Key)
	assert.Equal(t, "z.Z.run", result.TopFrames[2].Key)
}

func TestTopFramesCalculator_Calculate_Empty(t *testing.T) {
	result := NewTopFramesCalculator().Calculate(nil)

	require.NotNil(t, result)
	assert.Equal(t, int64(0), result.TotalSamples)
	assert.Empty(t, result.TopFrames)
}

func TestTopFramesCalculator_Calculate_SkipsEmptyStacks(t *testing.T) {
	snaps := []*model.Snapshot{
		testutil.Snapshot(0, testutil.Thread(1, "VM Thread", model.StateRunnable)),
	}

	result := NewTopFramesCalculator().Calculate(snaps)

	assert.Equal(t, int64(0), result.TotalSamples)
	assert.Empty(t, result.TopFrames)
}

func BenchmarkTopFramesCalculator_Calculate(b *testing.B) {
	threads := make([]*model.ThreadRecord, 0, 500)
	frames := []string{"a.A.f:1", "b.B.g:2", "c.C.h:3", "d.D.i:4"}
	for i := 0; i < 500; i++ {
		threads = append(threads, testutil.Thread(int64(i+1), "t", model.StateRunnable, frames[i%len(frames)], "root.Main.main"))
	}
	snaps := []*model.Snapshot{testutil.Snapshot(0, threads...), testutil.Snapshot(1, threads...)}

	calc := NewTopFramesCalculator(WithStackDepth(0))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		calc.Calculate(snaps)
	}
}

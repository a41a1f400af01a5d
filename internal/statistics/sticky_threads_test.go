package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dump-analysis/internal/testutil"
	"github.com/dump-analysis/pkg/model"
)

func TestStickyThreads_RanksByPersistence(t *testing.T) {
	result := StickyThreads(busySnapshots(), 1, model.GranularityMethod)

	require.Len(t, result, 2)
	assert.Equal(t, "worker-1", result[0].Key.Name)
	assert.Equal(t, 2, result[0].Runnable)
	assert.Equal(t, []string{"com.a.Hot.spin"}, result[0].TopFrames)

	assert.Equal(t, "worker-2", result[1].Key.Name)
	assert.Equal(t, []string{"com.a.Hot.spin", "com.a.Cold.read"}, result[1].TopFrames)
}

func TestStickyThreads_ReusedIDIsDifferentThread(t *testing.T) {
	snaps := []*model.Snapshot{
		testutil.Snapshot(0, testutil.Thread(7, "job-a", model.StateRunnable, "x.X.run")),
		testutil.Snapshot(1, testutil.Thread(7, "job-b", model.StateRunnable, "x.X.run")),
	}

	result := StickyThreads(snaps, 2, model.GranularityLine)
	assert.Empty(t, result)

	all := StickyThreads(snaps, 1, model.GranularityLine)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Runnable)
	assert.Equal(t, 1, all[0].Seen)
}

func TestStickyThreads_MinRunnable(t *testing.T) {
	result := StickyThreads(busySnapshots(), 2, model.GranularityLine)

	require.Len(t, result, 2)
	for _, st := range result {
		assert.Equal(t, 2, st.Seen)
	}
	assert.Empty(t, StickyThreads(busySnapshots(), 3, model.GranularityLine))
}

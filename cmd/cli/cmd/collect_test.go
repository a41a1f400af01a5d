package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dump-analysis/internal/provider"
	"github.com/dump-analysis/internal/storage"
	"github.com/dump-analysis/internal/testutil"
	"github.com/dump-analysis/pkg/config"
	"github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/utils"
)

func TestCollectionFlags_LiveConfig(t *testing.T) {
	withConfig(t, config.Default())

	tests := []struct {
		name      string
		args      []string
		count     int
		interval  time.Duration
		tool      string
		histogram bool
	}{
		{"config defaults", []string{"--pid", "7"}, 3, 5 * time.Second, config.ToolJstack, false},
		{"count and tool", []string{"--pid", "7", "--count", "1", "--tool", "jcmd"}, 1, 5 * time.Second, config.ToolJcmd, false},
		{"zero interval", []string{"--pid", "7", "--interval", "0s"}, 3, 0, config.ToolJstack, false},
		{"histogram", []string{"--pid", "7", "--histogram"}, 3, 5 * time.Second, config.ToolJstack, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flags collectionFlags
			c := &cobra.Command{Use: "collect"}
			flags.register(c, "histogram")
			require.NoError(t, c.Flags().Parse(tt.args))

			lc := flags.liveConfig(c)

			assert.Equal(t, 7, lc.PID)
			assert.Equal(t, tt.count, lc.Count)
			assert.Equal(t, tt.interval, lc.Interval)
			assert.Equal(t, tt.tool, lc.Tool)
			assert.Equal(t, tt.histogram, lc.Histogram)
			assert.NoError(t, lc.Validate())
		})
	}
}

func TestCollectionFlags_LiveConfig_ConfiguredHistogram(t *testing.T) {
	c := config.Default()
	c.Collection.Histogram = true
	withConfig(t, c)

	var flags collectionFlags
	cmd := &cobra.Command{Use: "analyze"}
	flags.register(cmd, "collect-histogram")
	require.NoError(t, cmd.Flags().Parse([]string{"--pid", "7", "--collect-histogram=false"}))

	assert.False(t, flags.liveConfig(cmd).Histogram)
}

func TestAnalyzersCmd_ListsRegistry(t *testing.T) {
	var out bytes.Buffer
	analyzersCmd.SetOut(&out)
	t.Cleanup(func() { analyzersCmd.SetOut(nil) })

	require.NoError(t, analyzersCmd.RunE(analyzersCmd, nil))

	text := out.String()
	for _, name := range []string{"Status", "Deadlock", "Most Work", "Flame", "Threads", "Heap"} {
		assert.Contains(t, text, name)
	}
	assert.Contains(t, text, "MANY")
	assert.Contains(t, text, "most-work")
	assert.Contains(t, text, "heap-threshold")
}

func TestConfigArgs_WrapsAsConfigError(t *testing.T) {
	validate := configArgs(cobra.NoArgs)

	err := validate(&cobra.Command{Use: "jvms"}, []string{"extra"})

	require.Error(t, err)
	assert.Equal(t, errors.ExitConfig, errors.ProcessExitCode(err))
}

// stubRunner prints the same thread dump for every command.
type stubRunner struct {
	output []byte
}

func (r stubRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return r.output, nil
}

// limitedStore accepts the first n writes and rejects the rest.
type limitedStore struct {
	storage.Storage
	n int
}

func (s *limitedStore) Put(ctx context.Context, key string, r io.Reader) error {
	if s.n == 0 {
		return errors.New(errors.CodeStorageError, "quota exceeded")
	}
	s.n--
	return s.Storage.Put(ctx, key, r)
}

func newCollectTestProvider(t *testing.T, store storage.Storage, count int) *provider.LiveProvider {
	t.Helper()
	cfg := provider.LiveConfig{PID: 4242, Count: count, Interval: time.Second, Tool: config.ToolJstack}
	opts := append(collectLiveOptions(store, "prod", &utils.NullLogger{}),
		provider.WithRunner(stubRunner{output: testutil.LoadFixture(t, "busy-1.txt")}),
		provider.WithClock(utils.NewMockClock(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))),
	)
	return provider.NewLiveProvider(cfg, opts...)
}

func TestArchiveDumps_PrintsStoredObjects(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	var out bytes.Buffer

	err = archiveDumps(context.Background(), &out, newCollectTestProvider(t, store, 3), store, &utils.NullLogger{})

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "20240305-150002-threads-003.txt")
}

func TestArchiveDumps_PartialArchiveFails(t *testing.T) {
	withConfig(t, config.Default())
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := &limitedStore{Storage: local, n: 2}
	var out bytes.Buffer

	err = archiveDumps(context.Background(), &out, newCollectTestProvider(t, store, 3), store, &utils.NullLogger{})

	require.Error(t, err)
	assert.Equal(t, errors.CodeStorageError, errors.GetErrorCode(err))
	assert.Empty(t, out.String())
	assert.Equal(t, errors.ExitGeneric, exitStatus(err))
}

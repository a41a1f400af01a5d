package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dump-analysis/internal/provider"
	"github.com/dump-analysis/internal/storage"
	"github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/utils"
)

// collectionFlags are the live collection flags shared by analyze and collect.
type collectionFlags struct {
	pid           int
	count         int
	interval      time.Duration
	tool          string
	histogram     bool
	histogramFlag string
}

func (c *collectionFlags) register(cmd *cobra.Command, histogramFlag string) {
	c.histogramFlag = histogramFlag
	f := cmd.Flags()
	f.IntVar(&c.pid, "pid", 0, "Process id of the running JVM")
	f.IntVar(&c.count, "count", 0, "Dumps to collect (default from config)")
	f.DurationVar(&c.interval, "interval", 0, "Pause between dumps (default from config)")
	f.StringVar(&c.tool, "tool", "", "Collection tool: jstack or jcmd (default from config)")
	f.BoolVar(&c.histogram, histogramFlag, false, "Also collect a class histogram with the first dump")
}

// liveConfig merges the collection config with the flags set on cmd.
func (c *collectionFlags) liveConfig(cmd *cobra.Command) provider.LiveConfig {
	lc := provider.LiveConfigFrom(c.pid, cfg.Collection)
	f := cmd.Flags()
	if f.Changed("count") {
		lc.Count = c.count
	}
	if f.Changed("interval") {
		lc.Interval = c.interval
	}
	if f.Changed("tool") {
		lc.Tool = c.tool
	}
	if f.Changed(c.histogramFlag) {
		lc.Histogram = c.histogram
	}
	return lc
}

var (
	collectOpts   collectionFlags
	collectPrefix string
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect --pid <pid>",
	Short: "Collect thread dumps from a running JVM into storage",
	Long: `Collect thread dumps (and optionally a class histogram) from a running JVM and
archive the raw output to the configured storage, without analyzing it.

Objects are stored as <prefix>/<YYYYMMDD-HHMMSS>-<kind>-<NNN>.txt and can be
analyzed later with: analyze --from-storage <prefix>`,
	Args: configArgs(cobra.NoArgs),
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectOpts.register(collectCmd, "histogram")
	collectCmd.Flags().StringVar(&collectPrefix, "prefix", "", "Storage prefix (default from config)")
}

func runCollect(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if collectOpts.pid == 0 {
		return errors.New(errors.CodeConfigError, "--pid is required")
	}

	prefix := cfg.Storage.Prefix
	if cmd.Flags().Changed("prefix") {
		prefix = collectPrefix
	}

	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return err
	}

	live := provider.NewLiveProvider(collectOpts.liveConfig(cmd), collectLiveOptions(store, prefix, log)...)
	return archiveDumps(ctx, cmd.OutOrStdout(), live, store, log)
}

// collectLiveOptions archives every dump. A write that fails aborts the
// collection, since a gap in the stored series would skew later analysis.
func collectLiveOptions(store storage.Storage, prefix string, log utils.Logger) []provider.LiveOption {
	return []provider.LiveOption{
		provider.WithLiveLogger(log),
		provider.WithArchive(store, prefix),
		provider.WithRequiredArchive(),
	}
}

// archiveDumps runs the collection and prints the URL of every stored object.
func archiveDumps(ctx context.Context, out io.Writer, live *provider.LiveProvider, store storage.Storage, log utils.Logger) error {
	snapshots, err := live.Snapshots(ctx)
	if err != nil {
		return err
	}

	keys := live.Archived()
	for _, key := range keys {
		fmt.Fprintln(out, store.URL(key))
	}
	log.Info("archived %d objects from %d dumps", len(keys), len(snapshots))
	return nil
}

package cmd

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dump-analysis/internal/analyzer"
	"github.com/dump-analysis/internal/flamegraph"
	"github.com/dump-analysis/internal/provider"
	"github.com/dump-analysis/internal/storage"
	"github.com/dump-analysis/pkg/config"
	"github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/metrics"
	"github.com/dump-analysis/pkg/model"
	"github.com/dump-analysis/pkg/utils"
	"github.com/dump-analysis/pkg/writer"
)

// analyzeFlags holds the analyze command flags. Values only override the
// configuration when the flag was set on the command line.
type analyzeFlags struct {
	analyzers        string
	businessPackages []string

	// analyzer options
	top              int
	blockedThreshold int
	granularity      string
	stackDepth       int
	concentration    float64
	minPercent       float64
	flameFormat      string
	excludeDaemon    bool
	heapThreshold    string

	// inputs
	histogramFile string
	collection    collectionFlags
	archive       bool
	fromStorage   string
	latest        int

	// outputs
	pprofFile   string
	metricsFile string
	reportJSON  string
}

var analyzeOpts analyzeFlags

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <dump-file>...",
	Short: "Analyze thread dumps and print a report",
	Long: `Analyze one or more JVM thread dumps and print one report section per analyzer.

Snapshots come from exactly one source:
  - dump files given as arguments, in order (optionally --histogram)
  - a running JVM with --pid, sampled --count times --interval apart
  - previously archived snapshots with --from-storage <prefix>

Analyzers run in the order given with --analyzers. Without it the default set
runs: Status, Deadlock and Threads. Analyzers that need several dumps (Most Work)
fail with a configuration error when fewer than two are available.`,
	Args: configArgs(cobra.ArbitraryArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyzeOpts.run(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	binName := BinName()
	analyzeCmd.Example = `  # Default analyzers on a single dump
  ` + binName + ` analyze dump.txt

  # Flame tree in folded form, exported as a pprof profile too
  ` + binName + ` analyze -a flame --flame-format folded --pprof stacks.pb.gz d1.txt d2.txt

  # Heap summary from a class histogram, failing above 2GiB
  ` + binName + ` analyze -a heap --histogram histo.txt --heap-threshold 2GiB dump.txt

  # Re-analyze the five newest archived snapshots
  ` + binName + ` analyze -a most-work --from-storage prod/orders --latest 5`

	analyzeOpts.register(analyzeCmd)
}

// register binds the analyze flags to cmd.
func (o *analyzeFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	defaults := analyzer.DefaultOptions()

	f.StringVarP(&o.analyzers, "analyzers", "a", "", "Comma-separated analyzers to run: "+analyzer.ValidAnalyzers())
	f.StringSliceVar(&o.businessPackages, "business-packages", nil, "Package prefixes the heap analyzer reports as business code")

	f.IntVar(&o.top, string(analyzer.OptionTop), defaults.Top, "Rows in ranked tables (0 = all)")
	f.IntVar(&o.blockedThreshold, string(analyzer.OptionBlockedThreshold), defaults.BlockedThreshold, "Blocked thread count that fails Status (0 = off)")
	f.StringVar(&o.granularity, string(analyzer.OptionGranularity), defaults.Granularity, "Most Work frame key: class, method or line")
	f.IntVar(&o.stackDepth, string(analyzer.OptionStackDepth), defaults.StackDepth, "Frames per RUNNABLE stack Most Work counts (0 = all)")
	f.Float64Var(&o.concentration, string(analyzer.OptionConcentration), defaults.Concentration, "Top frame share in percent that fails Most Work (0 = off)")
	f.Float64Var(&o.minPercent, string(analyzer.OptionMinPercent), defaults.MinPercent, "Prune flame nodes below this percent of all stacks")
	f.StringVar(&o.flameFormat, string(analyzer.OptionFlameFormat), defaults.FlameFormat, "Flame output: tree or folded")
	f.BoolVar(&o.excludeDaemon, string(analyzer.OptionExcludeDaemon), defaults.ExcludeDaemon, "Leave daemon threads out of Status and Threads")
	f.StringVar(&o.heapThreshold, string(analyzer.OptionHeapThreshold), "", "Histogram size that fails Heap, e.g. 512MiB (empty = off)")

	f.StringVar(&o.histogramFile, "histogram", "", "Class histogram file attached to the first dump")
	o.collection.register(cmd, "collect-histogram")
	f.BoolVar(&o.archive, "archive", false, "Archive collected dumps to the configured storage")
	f.StringVar(&o.fromStorage, "from-storage", "", "Load archived snapshots stored under this prefix")
	f.IntVar(&o.latest, "latest", 0, "With --from-storage, keep only the N newest snapshots (0 = all)")

	f.StringVar(&o.pprofFile, "pprof", "", "Write the merged stacks as a gzipped pprof profile")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics (default from config)")
	f.StringVar(&o.reportJSON, "report-json", "", "Write the full report as JSON")
}

func (o *analyzeFlags) run(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts, err := o.resolveOptions(cmd, cfg.Analysis.Options)
	if err != nil {
		return err
	}

	analyzers, err := o.resolveAnalyzers(cmd, log)
	if err != nil {
		return err
	}

	src, err := o.newSnapshotProvider(cmd, args, log)
	if err != nil {
		return err
	}

	snapshots, err := src.Snapshots(ctx)
	if err != nil {
		return err
	}
	log.Debug("loaded %d snapshots", len(snapshots))

	report, err := analyzer.NewRunner(analyzer.WithLogger(log)).Run(ctx, analyzers, snapshots, opts)
	if err != nil {
		return err
	}

	if report.Text != "" {
		if _, err := cmd.OutOrStdout().Write([]byte(report.Text + "\n")); err != nil {
			return errors.Wrap(errors.CodeUnknown, "failed to write report", err)
		}
	}
	exitCode = report.ExitCode

	return o.writeOutputs(ctx, cmd, report, snapshots, opts)
}

// resolveOptions starts from the configured options and applies the flags the
// user set explicitly.
func (o *analyzeFlags) resolveOptions(cmd *cobra.Command, base config.OptionsConfig) (analyzer.Options, error) {
	opts := analyzer.Options{
		Top:              base.Top,
		BlockedThreshold: base.BlockedThreshold,
		Granularity:      base.Granularity,
		StackDepth:       base.StackDepth,
		Concentration:    base.Concentration,
		MinPercent:       base.MinPercent,
		FlameFormat:      base.FlameFormat,
		ExcludeDaemon:    base.ExcludeDaemon,
	}
	heap := base.HeapThreshold

	f := cmd.Flags()
	if f.Changed(string(analyzer.OptionTop)) {
		opts.Top = o.top
	}
	if f.Changed(string(analyzer.OptionBlockedThreshold)) {
		opts.BlockedThreshold = o.blockedThreshold
	}
	if f.Changed(string(analyzer.OptionGranularity)) {
		opts.Granularity = o.granularity
	}
	if f.Changed(string(analyzer.OptionStackDepth)) {
		opts.StackDepth = o.stackDepth
	}
	if f.Changed(string(analyzer.OptionConcentration)) {
		opts.Concentration = o.concentration
	}
	if f.Changed(string(analyzer.OptionMinPercent)) {
		opts.MinPercent = o.minPercent
	}
	if f.Changed(string(analyzer.OptionFlameFormat)) {
		opts.FlameFormat = o.flameFormat
	}
	if f.Changed(string(analyzer.OptionExcludeDaemon)) {
		opts.ExcludeDaemon = o.excludeDaemon
	}
	if f.Changed(string(analyzer.OptionHeapThreshold)) {
		heap = o.heapThreshold
	}

	size, err := parseByteSize(heap)
	if err != nil {
		return analyzer.Options{}, err
	}
	opts.HeapThreshold = size

	return opts, opts.Validate()
}

// parseByteSize accepts humanized sizes such as "512MiB" or "2GB". Empty means zero.
func parseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Newf(errors.CodeConfigError, "option %s: invalid size %q", analyzer.OptionHeapThreshold, s)
	}
	if n > math.MaxInt64 {
		return 0, errors.Newf(errors.CodeConfigError, "option %s: size %q is too large", analyzer.OptionHeapThreshold, s)
	}
	return int64(n), nil
}

func (o *analyzeFlags) resolveAnalyzers(cmd *cobra.Command, log utils.Logger) ([]analyzer.Analyzer, error) {
	packages := cfg.Analysis.BusinessPackages
	if cmd.Flags().Changed("business-packages") {
		packages = o.businessPackages
	}
	factory := analyzer.NewFactory(&analyzer.BaseAnalyzerConfig{
		Logger:           log,
		BusinessPackages: packages,
	})

	if cmd.Flags().Changed("analyzers") {
		return factory.Parse(o.analyzers)
	}
	return factory.CreateAll(cfg.Analysis.Analyzers)
}

// newSnapshotProvider picks the snapshot source from the flags.
func (o *analyzeFlags) newSnapshotProvider(cmd *cobra.Command, args []string, log utils.Logger) (provider.Provider, error) {
	sources := 0
	if len(args) > 0 {
		sources++
	}
	if o.collection.pid != 0 {
		sources++
	}
	if o.fromStorage != "" {
		sources++
	}
	switch {
	case sources == 0:
		return nil, errors.New(errors.CodeConfigError, "no input: give dump files, --pid or --from-storage")
	case sources > 1:
		return nil, errors.New(errors.CodeConfigError, "dump files, --pid and --from-storage are mutually exclusive")
	}

	switch {
	case o.collection.pid != 0:
		liveCfg := o.collection.liveConfig(cmd)
		opts := []provider.LiveOption{provider.WithLiveLogger(log)}
		if o.archive || cfg.Collection.Persist {
			store, err := storage.NewStorage(&cfg.Storage)
			if err != nil {
				return nil, err
			}
			opts = append(opts, provider.WithArchive(store, cfg.Storage.Prefix))
		}
		return provider.NewLiveProvider(liveCfg, opts...), nil

	case o.fromStorage != "":
		if o.latest < 0 {
			return nil, errors.Newf(errors.CodeConfigError, "--latest must not be negative, got %d", o.latest)
		}
		store, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			return nil, err
		}
		return provider.NewStoredProvider(store, o.fromStorage,
			provider.WithLatest(o.latest),
			provider.WithStoredLogger(log),
		), nil

	default:
		opts := []provider.FileOption{provider.WithFileLogger(log)}
		if o.histogramFile != "" {
			opts = append(opts, provider.WithHistogramFile(o.histogramFile))
		}
		return provider.NewFileProvider(args, opts...), nil
	}
}

func (o *analyzeFlags) writeOutputs(ctx context.Context, cmd *cobra.Command, report *analyzer.Report, snapshots []*model.Snapshot, opts analyzer.Options) error {
	log := GetLogger()

	if o.pprofFile != "" {
		fg, err := analyzer.BuildFlameGraph(ctx, snapshots, opts.MinPercent)
		if err != nil {
			return err
		}
		if err := flamegraph.WriteProfileToFile(fg, o.pprofFile); err != nil {
			return err
		}
		log.Info("pprof profile written to %s", o.pprofFile)
	}

	if o.reportJSON != "" {
		if err := writer.NewPrettyJSONWriter[*analyzer.Report]().WriteToFile(report, o.reportJSON); err != nil {
			return errors.Wrap(errors.CodeStorageError, "failed to write report JSON", err)
		}
		log.Info("report written to %s", o.reportJSON)
	}

	path := cfg.Metrics.Textfile
	if cmd.Flags().Changed("metrics-file") {
		path = o.metricsFile
	}
	if path != "" {
		if err := recordMetrics(report, len(snapshots)).WriteTextfile(path); err != nil {
			return err
		}
		log.Debug("metrics written to %s", path)
	}
	return nil
}

func recordMetrics(report *analyzer.Report, snapshots int) *metrics.Recorder {
	rec := metrics.NewRecorder()
	rec.RecordRun(report.ExitCode, snapshots, time.Now())
	for _, section := range report.Results {
		code := 0
		if section.Result != nil {
			code = section.Result.ExitCode
		}
		rec.RecordAnalyzer(section.Name, code, section.Duration)
	}
	return rec
}

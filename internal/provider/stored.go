package provider

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dump-analysis/internal/parser"
	"github.com/dump-analysis/internal/parser/histogram"
	"github.com/dump-analysis/internal/parser/threaddump"
	"github.com/dump-analysis/internal/storage"
	"github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/model"
	"github.com/dump-analysis/pkg/utils"
)

// StoredProvider reloads snapshots archived by a LiveProvider.
type StoredProvider struct {
	store  storage.Storage
	prefix string
	latest int
	logger utils.Logger
}

// StoredOption configures a StoredProvider.
type StoredOption func(*StoredProvider)

// WithLatest keeps only the n most recent thread dumps. Zero keeps all.
func WithLatest(n int) StoredOption {
	return func(p *StoredProvider) {
		p.latest = n
	}
}

// WithStoredLogger sets the logger.
func WithStoredLogger(logger utils.Logger) StoredOption {
	return func(p *StoredProvider) {
		p.logger = utils.OrNull(logger)
	}
}

// NewStoredProvider creates a provider over the snapshot keys directly under prefix.
func NewStoredProvider(store storage.Storage, prefix string, opts ...StoredOption) *StoredProvider {
	p := &StoredProvider{
		store:  store,
		prefix: prefix,
		logger: &utils.NullLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type storedEntry struct {
	key  string
	info storage.SnapshotKeyInfo
}

// Snapshots loads thread dumps ordered by capture time and sequence. A histogram
// archived with the same timestamp and sequence is attached to its thread dump.
// Keys that are not snapshot keys are ignored.
func (p *StoredProvider) Snapshots(ctx context.Context) ([]*model.Snapshot, error) {
	keys, err := p.store.List(ctx, listPrefix(p.prefix))
	if err != nil {
		return nil, err
	}

	threads := make([]storedEntry, 0)
	histograms := make(map[string]string)
	for _, key := range keys {
		info, err := storage.ParseSnapshotKey(key)
		if err != nil || info.Prefix != trimSlashes(p.prefix) {
			continue
		}
		switch info.Kind {
		case storage.KindThreads:
			threads = append(threads, storedEntry{key: key, info: info})
		case storage.KindHistogram:
			histograms[pairKey(info)] = key
		}
	}
	if len(threads) == 0 {
		return nil, errors.Newf(errors.CodeNotFound, "no archived thread dumps under %q", p.prefix)
	}

	sort.SliceStable(threads, func(i, j int) bool {
		a, b := threads[i].info, threads[j].info
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return a.Seq < b.Seq
	})
	if p.latest > 0 && len(threads) > p.latest {
		threads = threads[len(threads)-p.latest:]
	}

	opts := &parser.ParseOptions{Logger: p.logger}
	snapshots := make([]*model.Snapshot, 0, len(threads))
	for _, entry := range threads {
		snap, err := load(ctx, p.store, entry.key, threaddump.NewParser(opts).Parse)
		if err != nil {
			return nil, err
		}
		snap.CapturedAt = entry.info.Time
		snap.Source = entry.key
		if hkey, ok := histograms[pairKey(entry.info)]; ok {
			snap.Histogram, err = load(ctx, p.store, hkey, histogram.NewParser(opts).Parse)
			if err != nil {
				return nil, err
			}
		}
		snapshots = append(snapshots, snap)
	}

	p.logger.Debug("loaded %d archived dumps from %s", len(snapshots), p.prefix)
	return reindex(snapshots), nil
}

func load[T any](ctx context.Context, store storage.Storage, key string, parse func(context.Context, io.Reader) (T, error)) (T, error) {
	var zero T

	rc, err := store.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	defer rc.Close()

	return decode(ctx, rc, parse)
}

func pairKey(info storage.SnapshotKeyInfo) string {
	return info.Time.Format(storage.KeyTimeLayout) + "#" + strconv.Itoa(info.Seq)
}

func trimSlashes(prefix string) string {
	return strings.Trim(prefix, "/")
}

// listPrefix restricts a listing to the prefix directory.
func listPrefix(prefix string) string {
	if p := trimSlashes(prefix); p != "" {
		return p + "/"
	}
	return ""
}

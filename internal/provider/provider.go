// Package provider supplies the snapshots an analysis run consumes: dump files on
// disk, a live JVM sampled through jstack or jcmd, or raw text archived in storage.
package provider

import (
	"context"
	"io"

	"github.com/dump-analysis/pkg/compression"
	"github.com/dump-analysis/pkg/model"
)

// Provider supplies the snapshots for one analysis run, oldest first.
// Index is set to the position in the returned slice.
type Provider interface {
	Snapshots(ctx context.Context) ([]*model.Snapshot, error)
}

// reindex numbers snapshots by position.
func reindex(snapshots []*model.Snapshot) []*model.Snapshot {
	for i, s := range snapshots {
		s.Index = i
	}
	return snapshots
}

// decode parses r, unwrapping gzip or zstd compression first.
func decode[T any](ctx context.Context, r io.Reader, parse func(context.Context, io.Reader) (T, error)) (T, error) {
	var zero T

	rc, _, err := compression.NewReader(r)
	if err != nil {
		return zero, err
	}
	defer rc.Close()

	return parse(ctx, rc)
}

package storage

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dump-analysis/pkg/errors"
)

// SnapshotKind names what a stored snapshot holds.
type SnapshotKind string

const (
	KindThreads   SnapshotKind = "threads"
	KindHistogram SnapshotKind = "histogram"
)

// KeyTimeLayout is the timestamp layout embedded in snapshot keys.
const KeyTimeLayout = "20060102-150405"

var snapshotKeyRegex = regexp.MustCompile(`^(\d{8}-\d{6})-(threads|histogram)-(\d{3,})\.txt$`)

// SnapshotKeyInfo is a parsed snapshot key.
type SnapshotKeyInfo struct {
	Prefix string
	Time   time.Time
	Kind   SnapshotKind
	Seq    int
}

// SnapshotKey builds "<prefix>/<YYYYMMDD-HHMMSS>-<kind>-<NNN>.txt".
// The time is rendered in UTC so keys sort chronologically across hosts.
func SnapshotKey(prefix string, ts time.Time, kind SnapshotKind, seq int) string {
	name := fmt.Sprintf("%s-%s-%03d.txt", ts.UTC().Format(KeyTimeLayout), kind, seq)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// ParseSnapshotKey splits a key produced by SnapshotKey.
func ParseSnapshotKey(key string) (SnapshotKeyInfo, error) {
	dir, name := path.Split(key)
	m := snapshotKeyRegex.FindStringSubmatch(name)
	if m == nil {
		return SnapshotKeyInfo{}, errors.Newf(errors.CodeInvalidInput, "not a snapshot key: %s", key)
	}

	ts, err := time.Parse(KeyTimeLayout, m[1])
	if err != nil {
		return SnapshotKeyInfo{}, errors.Wrap(errors.CodeInvalidInput, "bad snapshot key timestamp", err)
	}
	seq, err := strconv.Atoi(m[3])
	if err != nil {
		return SnapshotKeyInfo{}, errors.Wrap(errors.CodeInvalidInput, "bad snapshot key sequence", err)
	}

	return SnapshotKeyInfo{
		Prefix: strings.TrimSuffix(dir, "/"),
		Time:   ts,
		Kind:   SnapshotKind(m[2]),
		Seq:    seq,
	}, nil
}

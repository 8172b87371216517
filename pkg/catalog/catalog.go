// Package catalog builds an ordered, indexed snapshot of all entries
// currently present in the remote store.
package catalog

import (
	"context"
	"strings"

	"github.com/remoteshelf/shelf/pkg/remote"
	"go.uber.org/zap"
)

// Entry is one stored object: a hash-prefixed folder containing one file.
type Entry struct {
	// Index is positional within the snapshot. It is not content derived
	// and changes across snapshots after uploads or deletions, so it must
	// never be persisted across invocations.
	Index int

	// RelativePath below the store root, two segments: hash-prefix/filename
	RelativePath string
}

// Prefix returns the hash-prefix folder name
func (e Entry) Prefix() string {
	prefix, _, _ := strings.Cut(e.RelativePath, "/")
	return prefix
}

// Name returns the stored file name
func (e Entry) Name() string {
	_, name, _ := strings.Cut(e.RelativePath, "/")
	return name
}

// Catalog is a snapshot of the remote listing. It is never refreshed
// mid-selection: selections derived from it must not outlive remote state
// changes performed elsewhere.
type Catalog struct {
	entries []Entry
}

// Build lists the store once and assigns contiguous positional indices in
// listing order (oldest to newest, as sorted by the remote site).
func Build(ctx context.Context, lister remote.Lister, l *zap.Logger) (*Catalog, error) {
	if l == nil {
		l = zap.NewNop()
	}
	paths, err := lister.ListStore(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		if strings.Count(p, "/") != 1 {
			l.Warn("ignoring stray object in store", zap.String("path", p))
			continue
		}
		entries = append(entries, Entry{Index: len(entries), RelativePath: p})
	}
	l.Debug("built catalog", zap.Int("entries", len(entries)))
	return &Catalog{entries: entries}, nil
}

// Len is the number of entries in the snapshot
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entry returns the entry at the given index. The index must be valid.
func (c *Catalog) Entry(index int) Entry {
	return c.entries[index]
}

// Entries returns the snapshot in listing order
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Package selection implements a composable query pipeline over a catalog
// snapshot: filtering, index/name/hash resolution, time windows, sorting,
// truncation and reversal, with on-demand metadata fetch.
//
// Each operation consumes its receiver and returns a new Selection value, so
// operations compose strictly in call order. The intended order is
// selection → sort → reverse → truncate: truncation after a sort picks the
// smallest or largest n, truncation before it picks the earliest-added n.
package selection

import (
	"context"
	"regexp"
	"sort"

	"github.com/remoteshelf/shelf/pkg/catalog"
	"github.com/remoteshelf/shelf/pkg/hashtoken"
	"github.com/remoteshelf/shelf/pkg/remote"
	"github.com/remoteshelf/shelf/pkg/status"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Selection is an ordered, deduplicated subset of catalog indices.
//
// A Selection never outlives the catalog snapshot it was built from: it must
// not be retained across uploads or deletions performed by other
// collaborators, since its stat cache is memoized, never invalidated.
type Selection struct {
	cat     *catalog.Catalog
	indices []int
	stats   *statCache
	stater  remote.Stater
	localFs afero.Fs
	l       *zap.Logger
}

// Option configures a new Selection
type Option func(*Selection)

// Stater wires the remote stat collaborator, required by any operation
// needing size or modification time
func Stater(s remote.Stater) Option {
	return func(sel *Selection) {
		sel.stater = s
	}
}

// LocalFs sets the filesystem used to hash local files in ByHash
func LocalFs(fs afero.Fs) Option {
	return func(sel *Selection) {
		sel.localFs = fs
	}
}

// Logger sets a logger for this selection
func Logger(l *zap.Logger) Option {
	return func(sel *Selection) {
		sel.l = l
	}
}

// New creates an empty Selection over a catalog snapshot
func New(cat *catalog.Catalog, opts ...Option) Selection {
	s := Selection{
		cat:     cat,
		indices: []int{},
		stats:   &statCache{},
		localFs: afero.NewOsFs(),
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(&s)
	}
	return s
}

// Count of currently selected entries
func (s Selection) Count() int {
	return len(s.indices)
}

// Indices returns the selected catalog indices in current order
func (s Selection) Indices() []int {
	out := make([]int, len(s.indices))
	copy(out, s.indices)
	return out
}

// Catalog returns the snapshot this selection was built from
func (s Selection) Catalog() *catalog.Catalog {
	return s.cat
}

// ByIndices appends entries by signed index. Negative values resolve from the
// end (-1 is the newest entry). Any index outside [-N, N) fails.
func (s Selection) ByIndices(raw []int) (Selection, error) {
	if len(raw) == 0 {
		return s, nil
	}
	n := s.cat.Len()
	resolved := make([]int, 0, len(raw))
	for _, idx := range raw {
		if idx < -n || idx >= n {
			return s, status.ErrInvalidIndex.
				WithOp("by indices").
				WithIndex(idx).
				WrapMsg("catalog holds %d entries", n)
		}
		if idx < 0 {
			idx += n
		}
		resolved = append(resolved, idx)
	}
	s.indices = makeUnique(append(s.Indices(), resolved...))
	return s, nil
}

// ByFilter appends all entries whose file name matches the regex.
// An empty filter is a no-op.
func (s Selection) ByFilter(filter string) (Selection, error) {
	if filter == "" {
		return s, nil
	}
	re, err := regexp.Compile(filter)
	if err != nil {
		return s, err
	}
	indices := s.Indices()
	for _, e := range s.cat.Entries() {
		if re.MatchString(e.Name()) {
			indices = append(indices, e.Index)
		}
	}
	s.indices = makeUnique(indices)
	return s, nil
}

// ByHash appends, for each local file, the entry whose folder name prefix
// equals the file's content token at the given prefix length. Both sides are
// compared at the same truncation, or they would never match.
//
// When bailOnMissing is unset, files without a remote counterpart are logged
// and skipped.
func (s Selection) ByHash(localFiles []string, prefixLength int, bailOnMissing bool) (Selection, error) {
	if len(localFiles) == 0 {
		return s, nil
	}

	tokenToIndex := make(map[string]int, s.cat.Len())
	for _, e := range s.cat.Entries() {
		prefix := e.Prefix()
		if len(prefix) > prefixLength {
			prefix = prefix[:prefixLength]
		}
		tokenToIndex[prefix] = e.Index
	}

	indices := s.Indices()
	for _, file := range localFiles {
		token, err := hashtoken.Local(s.localFs, file, prefixLength)
		if err != nil {
			return s, err
		}
		idx, ok := tokenToIndex[token]
		if !ok {
			if bailOnMissing {
				return s, status.ErrNoMatchingRemoteFile.
					WithOp("by hash").
					WithPath(file)
			}
			s.l.Warn("no file with same hash found on remote", zap.String("file", file))
			continue
		}
		indices = append(indices, idx)
	}
	s.indices = makeUnique(indices)
	return s, nil
}

// WithAll appends every catalog entry if the flag is set
func (s Selection) WithAll(flag bool) Selection {
	if !flag {
		return s
	}
	indices := s.Indices()
	for i := 0; i < s.cat.Len(); i++ {
		indices = append(indices, i)
	}
	s.indices = makeUnique(indices)
	return s
}

// WithAllIfNone appends every catalog entry if the flag is set and nothing
// has been selected so far
func (s Selection) WithAllIfNone(flag bool) Selection {
	if flag && len(s.indices) == 0 {
		return s.WithAll(true)
	}
	return s
}

// SelectNewer keeps only entries modified within the given time window.
// An empty duration is a no-op.
func (s Selection) SelectNewer(ctx context.Context, userDuration string) (Selection, error) {
	return s.filterByTime(ctx, userDuration, false)
}

// SelectOlder keeps only entries modified before the given time window.
// An empty duration is a no-op.
func (s Selection) SelectOlder(ctx context.Context, userDuration string) (Selection, error) {
	return s.filterByTime(ctx, userDuration, true)
}

// SortBySize stable-sorts the selection ascending by file size
func (s Selection) SortBySize(ctx context.Context, flag bool) (Selection, error) {
	if !flag {
		return s, nil
	}
	if err := s.ensureStats(ctx); err != nil {
		return s, err
	}
	indices := s.Indices()
	sort.SliceStable(indices, func(i, j int) bool {
		return s.stats.get(indices[i]).Size < s.stats.get(indices[j]).Size
	})
	s.indices = indices
	return s, nil
}

// SortByTime stable-sorts the selection ascending by modification time
func (s Selection) SortByTime(ctx context.Context, flag bool) (Selection, error) {
	if !flag {
		return s, nil
	}
	if err := s.ensureStats(ctx); err != nil {
		return s, err
	}
	indices := s.Indices()
	sort.SliceStable(indices, func(i, j int) bool {
		return s.stats.get(indices[i]).ModTime < s.stats.get(indices[j]).ModTime
	})
	s.indices = indices
	return s, nil
}

// Revert reverses the current order if the flag is set
func (s Selection) Revert(flag bool) Selection {
	if !flag {
		return s
	}
	indices := s.Indices()
	for i, j := 0, len(indices)-1; i < j; i, j = i+1, j-1 {
		indices[i], indices[j] = indices[j], indices[i]
	}
	s.indices = indices
	return s
}

// First truncates to the first n entries of the current order.
// A negative n is a no-op.
func (s Selection) First(n int) Selection {
	if n < 0 || n >= len(s.indices) {
		return s
	}
	s.indices = s.indices[:n]
	return s
}

// Last truncates to the last n entries of the current order.
// A negative n is a no-op.
func (s Selection) Last(n int) Selection {
	if n < 0 || n >= len(s.indices) {
		return s
	}
	s.indices = s.indices[len(s.indices)-n:]
	return s
}

// WithStats fetches stats for the current selection if the flag is set and
// they are not already cached
func (s Selection) WithStats(ctx context.Context, flag bool) (Selection, error) {
	if !flag {
		return s, nil
	}
	if err := s.ensureStats(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// HasStats reports whether stats have been fetched for this selection
func (s Selection) HasStats() bool {
	return s.stats.populated
}

func (s Selection) filterByTime(ctx context.Context, userDuration string, selectOlder bool) (Selection, error) {
	if userDuration == "" {
		return s, nil
	}
	cutoff, err := cutoffEpoch(userDuration)
	if err != nil {
		return s, err
	}
	if err := s.ensureStats(ctx); err != nil {
		return s, err
	}

	kept := make([]int, 0, len(s.indices))
	for _, idx := range s.indices {
		mtime := s.stats.get(idx).ModTime
		if selectOlder && mtime <= cutoff || !selectOlder && mtime >= cutoff {
			kept = append(kept, idx)
		}
	}
	s.indices = kept
	return s, nil
}

// makeUnique removes duplicate indices, keeping the first occurrence
func makeUnique(indices []int) []int {
	seen := make(map[int]struct{}, len(indices))
	out := indices[:0]
	for _, idx := range indices {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	return out
}

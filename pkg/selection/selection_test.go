package selection

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/remoteshelf/shelf/pkg/catalog"
	"github.com/remoteshelf/shelf/pkg/errors"
	"github.com/remoteshelf/shelf/pkg/hashtoken"
	"github.com/remoteshelf/shelf/pkg/remote/mockremote"
	"github.com/remoteshelf/shelf/pkg/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds a store of n entries in insertion order, with growing sizes
func fixture(t *testing.T, paths ...string) (*mockremote.Remote, *catalog.Catalog) {
	t.Helper()
	store := mockremote.New()
	for i, p := range paths {
		store.Put(p, bytes.Repeat([]byte("x"), (i+1)*10))
	}
	cat, err := catalog.Build(context.Background(), store, nil)
	require.NoError(t, err)
	require.Equal(t, len(paths), cat.Len())
	return store, cat
}

func TestByIndices(t *testing.T) {
	_, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png", "cccc/c.png")

	for _, toPin := range []struct {
		name     string
		in       []int
		expected []int
	}{
		{"empty is a no-op", nil, []int{}},
		{"positive", []int{1}, []int{1}},
		{"negative resolves from the end", []int{-1}, []int{2}},
		{"mixed keeps call order", []int{2, 0}, []int{2, 0}},
		{"duplicates keep the first occurrence", []int{1, 0, 1, -2}, []int{1, 0}},
		{"boundary low", []int{-3}, []int{0}},
	} {
		tc := toPin
		t.Run(tc.name, func(t *testing.T) {
			sel, err := New(cat).ByIndices(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sel.Indices())
		})
	}
}

func TestByIndicesOutOfBounds(t *testing.T) {
	_, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png", "cccc/c.png")

	for _, idx := range []int{3, -4, 100, -100} {
		_, err := New(cat).ByIndices([]int{idx})
		require.Error(t, err, "index %d should be rejected", idx)
		assert.ErrorIs(t, err, status.ErrInvalidIndex)
	}
}

func TestByFilter(t *testing.T) {
	_, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png", "cccc/c.png")

	sel, err := New(cat).ByFilter(`\.png$`)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, sel.Indices())

	// filter matches the file name, not the hash folder
	sel, err = New(cat).ByFilter(`^aaaa`)
	require.NoError(t, err)
	assert.Equal(t, []int{}, sel.Indices())

	_, err = New(cat).ByFilter(`([`)
	require.Error(t, err)
}

func TestByFilterAppendsAfterIndices(t *testing.T) {
	_, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png", "cccc/c.png")

	sel, err := New(cat).ByIndices([]int{2})
	require.NoError(t, err)
	sel, err = sel.ByFilter(`\.png$`)
	require.NoError(t, err)
	// index 2 was already selected, the filter adds only index 1
	assert.Equal(t, []int{2, 1}, sel.Indices())
}

func TestByHash(t *testing.T) {
	const prefixLength = 16
	localFs := afero.NewMemMapFs()
	content := []byte("shared content")
	require.NoError(t, afero.WriteFile(localFs, "/local/b.png", content, 0o600))

	token, err := hashtoken.FromReader(bytes.NewReader(content), prefixLength)
	require.NoError(t, err)

	store := mockremote.New()
	store.Put("aaaa/a.txt", []byte("other"))
	store.Put(token+"/b.png", content)
	cat, err := catalog.Build(context.Background(), store, nil)
	require.NoError(t, err)

	sel, err := New(cat, LocalFs(localFs)).ByHash([]string{"/local/b.png"}, prefixLength, true)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, sel.Indices())
}

func TestByHashMissing(t *testing.T) {
	localFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(localFs, "/local/unknown.txt", []byte("nowhere remote"), 0o600))

	_, cat := fixture(t, "aaaa/a.txt")

	// lenient mode skips and keeps going
	sel, err := New(cat, LocalFs(localFs)).ByHash([]string{"/local/unknown.txt"}, 16, false)
	require.NoError(t, err)
	assert.Equal(t, 0, sel.Count())

	// strict mode bails
	_, err = New(cat, LocalFs(localFs)).ByHash([]string{"/local/unknown.txt"}, 16, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrNoMatchingRemoteFile)
}

func TestWithAll(t *testing.T) {
	_, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png", "cccc/c.png")

	sel := New(cat).WithAll(true)
	assert.Equal(t, []int{0, 1, 2}, sel.Indices())

	sel, err := New(cat).ByIndices([]int{2})
	require.NoError(t, err)
	sel = sel.WithAll(true)
	// prior picks stay in front, the rest follows in catalog order
	assert.Equal(t, []int{2, 0, 1}, sel.Indices())
}

func TestWithAllIfNone(t *testing.T) {
	_, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png")

	sel := New(cat).WithAllIfNone(true)
	assert.Equal(t, []int{0, 1}, sel.Indices())

	sel, err := New(cat).ByIndices([]int{1})
	require.NoError(t, err)
	sel = sel.WithAllIfNone(true)
	assert.Equal(t, []int{1}, sel.Indices())

	sel = New(cat).WithAllIfNone(false)
	assert.Equal(t, 0, sel.Count())
}

func TestOperationsDoNotMutateTheirReceiver(t *testing.T) {
	_, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png", "cccc/c.png")

	base, err := New(cat).ByIndices([]int{0})
	require.NoError(t, err)

	derived, err := base.ByIndices([]int{1})
	require.NoError(t, err)
	other, err := base.ByIndices([]int{2})
	require.NoError(t, err)

	assert.Equal(t, []int{0}, base.Indices())
	assert.Equal(t, []int{0, 1}, derived.Indices())
	assert.Equal(t, []int{0, 2}, other.Indices())
}

func TestSortBySize(t *testing.T) {
	ctx := context.Background()
	// fixture sizes grow with insertion order: a=10, b=20, c=30
	store, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png", "cccc/c.png")

	sel, err := New(cat, Stater(store)).ByIndices([]int{2, 0, 1})
	require.NoError(t, err)
	sel, err = sel.SortBySize(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, sel.Indices())
	assert.True(t, sel.HasStats())
}

func TestSortByTime(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Unix()
	store := mockremote.New()
	store.PutAt("aaaa/old.txt", []byte("1"), now-3000)
	store.PutAt("bbbb/new.txt", []byte("2"), now-10)
	store.PutAt("cccc/mid.txt", []byte("3"), now-600)
	cat, err := catalog.Build(ctx, store, nil)
	require.NoError(t, err)

	sel := New(cat, Stater(store)).WithAll(true)
	sel, err = sel.SortByTime(ctx, true)
	require.NoError(t, err)

	names := make([]string, 0, sel.Count())
	for _, item := range sel.Items() {
		names = append(names, item.Entry.Name())
	}
	assert.Equal(t, []string{"old.txt", "mid.txt", "new.txt"}, names)
}

func TestRevertFirstLast(t *testing.T) {
	_, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png", "cccc/c.png", "dddd/d.gif")

	sel := New(cat).WithAll(true)

	assert.Equal(t, []int{3, 2, 1, 0}, sel.Revert(true).Indices())
	assert.Equal(t, []int{0, 1, 2, 3}, sel.Revert(false).Indices())

	assert.Equal(t, []int{0, 1}, sel.First(2).Indices())
	assert.Equal(t, []int{2, 3}, sel.Last(2).Indices())
	assert.Equal(t, []int{}, sel.First(0).Indices())

	// negative n and oversized n are no-ops
	assert.Equal(t, []int{0, 1, 2, 3}, sel.First(-1).Indices())
	assert.Equal(t, []int{0, 1, 2, 3}, sel.Last(-1).Indices())
	assert.Equal(t, []int{0, 1, 2, 3}, sel.Last(10).Indices())
}

func TestSortThenRevertThenLast(t *testing.T) {
	// "the n largest" composes as sort ascending, reverse, first n,
	// or equivalently sort ascending, last n, reverse
	ctx := context.Background()
	store, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png", "cccc/c.png", "dddd/d.gif")

	sel := New(cat, Stater(store)).WithAll(true)
	sel, err := sel.SortBySize(ctx, true)
	require.NoError(t, err)
	sel = sel.Revert(true).First(2)
	assert.Equal(t, []int{3, 2}, sel.Indices())
}

func TestSelectNewerAndOlder(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Unix()
	store := mockremote.New()
	store.PutAt("aaaa/ancient.txt", []byte("1"), now-10*24*3600)
	store.PutAt("bbbb/recent.txt", []byte("2"), now-3600)
	cat, err := catalog.Build(ctx, store, nil)
	require.NoError(t, err)

	sel := New(cat, Stater(store)).WithAll(true)

	newer, err := sel.SelectNewer(ctx, "1d")
	require.NoError(t, err)
	require.Equal(t, 1, newer.Count())
	assert.Equal(t, "bbbb/recent.txt", newer.Items()[0].Entry.RelativePath)

	older, err := sel.SelectOlder(ctx, "1d")
	require.NoError(t, err)
	require.Equal(t, 1, older.Count())
	assert.Equal(t, "aaaa/ancient.txt", older.Items()[0].Entry.RelativePath)

	// empty window is a no-op
	unchanged, err := sel.SelectNewer(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, unchanged.Count())
}

func TestSelectNewerInvalidDuration(t *testing.T) {
	ctx := context.Background()
	store, cat := fixture(t, "aaaa/a.txt")

	sel := New(cat, Stater(store)).WithAll(true)
	for _, in := range []string{"not a duration", "10", "100y"} {
		_, err := sel.SelectNewer(ctx, in)
		require.Error(t, err, "expected %q to be rejected", in)
		assert.ErrorIs(t, err, status.ErrInvalidDuration)
	}
}

func TestStatsFallbackWithoutBulkStat(t *testing.T) {
	ctx := context.Background()
	store, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png", "cccc/c.png")
	store.BulkStatAvailable = false

	sel := New(cat, Stater(store)).WithAll(true)
	sel, err := sel.SortBySize(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, sel.Indices())
}

func TestStatsAreFetchedOnce(t *testing.T) {
	ctx := context.Background()
	store, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png")

	sel := New(cat, Stater(store)).WithAll(true)
	sel, err := sel.WithStats(ctx, true)
	require.NoError(t, err)
	require.True(t, sel.HasStats())

	// the cache is memoized: a state change after the first fetch is not seen
	store.Put("aaaa/a.txt", bytes.Repeat([]byte("y"), 999))
	sel, err = sel.SortBySize(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, sel.Indices())
}

func TestStatCountMismatch(t *testing.T) {
	ctx := context.Background()
	store, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png")

	// entry deleted between listing and stat fetch
	require.NoError(t, store.RemoveFolder(ctx, "bbbb"))

	sel := New(cat, Stater(store)).WithAll(true)
	_, err := sel.WithStats(ctx, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrStatCountMismatch)
}

func TestWithStatsWithoutStater(t *testing.T) {
	_, cat := fixture(t, "aaaa/a.txt")
	sel := New(cat).WithAll(true)
	_, err := sel.WithStats(context.Background(), true)
	require.Error(t, err)
	var e *errors.Error
	assert.True(t, errors.As(err, &e))
}

func TestIteratorRestarts(t *testing.T) {
	_, cat := fixture(t, "aaaa/a.txt", "bbbb/b.png")
	sel := New(cat).WithAll(true)

	for round := 0; round < 2; round++ {
		it := sel.Iter()
		var paths []string
		for item, ok := it.Next(); ok; item, ok = it.Next() {
			paths = append(paths, item.Entry.RelativePath)
		}
		assert.Equal(t, []string{"aaaa/a.txt", "bbbb/b.png"}, paths, "round %d", round)
	}
}

func TestItemsCarryStatsOnlyWhenFetched(t *testing.T) {
	ctx := context.Background()
	store, cat := fixture(t, "aaaa/a.txt")

	sel := New(cat, Stater(store)).WithAll(true)
	require.Nil(t, sel.Items()[0].Stat)

	sel, err := sel.WithStats(ctx, true)
	require.NoError(t, err)
	item := sel.Items()[0]
	require.NotNil(t, item.Stat)
	assert.Equal(t, int64(10), item.Stat.Size)
}

func TestPipelineEndToEnd(t *testing.T) {
	// catalog [a.txt, b.png, c.png], filter pngs, sort by size, keep the smallest
	ctx := context.Background()
	store := mockremote.New()
	store.Put("aaaa/a.txt", bytes.Repeat([]byte("x"), 50))
	store.Put("bbbb/b.png", bytes.Repeat([]byte("x"), 300))
	store.Put("cccc/c.png", bytes.Repeat([]byte("x"), 100))
	cat, err := catalog.Build(ctx, store, nil)
	require.NoError(t, err)

	sel, err := New(cat, Stater(store)).ByFilter(`\.png$`)
	require.NoError(t, err)
	sel, err = sel.SortBySize(ctx, true)
	require.NoError(t, err)
	sel = sel.First(1)

	require.Equal(t, 1, sel.Count())
	assert.Equal(t, "cccc/c.png", sel.Items()[0].Entry.RelativePath)
}

func TestLargeSelection(t *testing.T) {
	store := mockremote.New()
	for i := 0; i < 200; i++ {
		store.Put(fmt.Sprintf("tok%04d/file-%03d.dat", i, i), []byte("x"))
	}
	cat, err := catalog.Build(context.Background(), store, nil)
	require.NoError(t, err)

	sel := New(cat).WithAll(true).Revert(true).First(5)
	assert.Equal(t, []int{199, 198, 197, 196, 195}, sel.Indices())
}

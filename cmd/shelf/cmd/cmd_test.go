package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/remoteshelf/shelf/pkg/catalog"
	"github.com/remoteshelf/shelf/pkg/hashtoken"
	"github.com/remoteshelf/shelf/pkg/remote/mockremote"
	"github.com/remoteshelf/shelf/pkg/selection"
	"github.com/remoteshelf/shelf/pkg/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndices(t *testing.T) {
	indices, err := parseIndices([]string{"0", "-1", "42"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, -1, 42}, indices)

	indices, err = parseIndices(nil)
	require.NoError(t, err)
	assert.Empty(t, indices)

	_, err = parseIndices([]string{"not-a-number"})
	require.Error(t, err)
}

func TestTransformFilename(t *testing.T) {
	for _, toPin := range []struct {
		path     string
		prefix   string
		suffix   string
		expected string
	}{
		{"report.pdf", "", "", "report.pdf"},
		{"/tmp/build/report.pdf", "", "", "report.pdf"},
		{"report.pdf", "2026-", "", "2026-report.pdf"},
		{"report.pdf", "", "-final", "report-final.pdf"},
		{"archive.tar.gz", "x-", "-y", "x-archive.tar-y.gz"},
		{"no-extension", "a-", "-b", "a-no-extension-b"},
	} {
		tc := toPin
		assert.Equal(t, tc.expected, transformFilename(tc.path, tc.prefix, tc.suffix))
	}
}

func TestMatchLocalFilesCountsDuplicates(t *testing.T) {
	// two local files with identical content share one remote entry but both
	// count as found
	const prefixLength = 16
	localFs := afero.NewMemMapFs()
	content := []byte("duplicated content")
	require.NoError(t, afero.WriteFile(localFs, "/local/one.txt", content, 0o600))
	require.NoError(t, afero.WriteFile(localFs, "/local/two.txt", content, 0o600))
	require.NoError(t, afero.WriteFile(localFs, "/local/absent.txt", []byte("nowhere remote"), 0o600))

	token, err := hashtoken.FromReader(bytes.NewReader(content), prefixLength)
	require.NoError(t, err)

	store := mockremote.New()
	store.Put(token+"/one.txt", content)
	cat, err := catalog.Build(context.Background(), store, nil)
	require.NoError(t, err)

	sel, found, err := matchLocalFiles(cat,
		[]string{"/local/one.txt", "/local/two.txt"},
		prefixLength, selection.LocalFs(localFs))
	require.NoError(t, err)
	assert.Equal(t, 2, found)
	assert.Equal(t, 1, sel.Count())

	_, found, err = matchLocalFiles(cat,
		[]string{"/local/one.txt", "/local/absent.txt"},
		prefixLength, selection.LocalFs(localFs))
	require.NoError(t, err)
	assert.Equal(t, 1, found)
}

func TestSingleEntry(t *testing.T) {
	store := mockremote.New()
	store.Put("aaaa/a.txt", []byte("1"))
	store.Put("bbbb/b.txt", []byte("2"))
	cat, err := catalog.Build(context.Background(), store, nil)
	require.NoError(t, err)

	sel, err := selection.New(cat).ByIndices([]int{1})
	require.NoError(t, err)
	entry, err := singleEntry(sel)
	require.NoError(t, err)
	assert.Equal(t, "bbbb/b.txt", entry.RelativePath)

	_, err = singleEntry(selection.New(cat))
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrNoEntry)

	_, err = singleEntry(selection.New(cat).WithAll(true))
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrNoEntry)
}

func TestSampleConfigIsValid(t *testing.T) {
	sample := sampleConfig()
	require.NotEmpty(t, sample.Hosts)
	h, err := sample.GetHost("")
	require.NoError(t, err)
	assert.NotEmpty(t, h.Folder)
	assert.NotEmpty(t, h.URL)
}

package hashtoken

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/remoteshelf/shelf/pkg/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgorithmFor(t *testing.T) {
	for _, toPin := range []struct {
		length   int
		expected string
	}{
		{1, "sha256sum"},
		{8, "sha256sum"},
		{32, "sha256sum"},
		{33, "sha512sum"},
		{64, "sha512sum"},
	} {
		tc := toPin
		algo, err := AlgorithmFor(tc.length)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, algo.Name)
	}

	for _, length := range []int{0, -1, 65, 1000} {
		_, err := AlgorithmFor(length)
		require.Error(t, err)
		assert.ErrorIs(t, err, status.ErrInvalidHashLength)
	}
}

func TestFromReaderMatchesDigest(t *testing.T) {
	content := []byte("some file content\n")

	d256 := sha256.Sum256(content)
	tok, err := FromReader(bytes.NewReader(content), 32)
	require.NoError(t, err)
	assert.Equal(t, base64.URLEncoding.EncodeToString(d256[:])[:32], tok)

	d512 := sha512.Sum512(content)
	tok, err = FromReader(bytes.NewReader(content), 33)
	require.NoError(t, err)
	assert.Equal(t, base64.URLEncoding.EncodeToString(d512[:])[:33], tok)
}

func TestFromReaderIsDeterministic(t *testing.T) {
	content := []byte("same bytes, same token")
	first, err := FromReader(bytes.NewReader(content), 16)
	require.NoError(t, err)
	second, err := FromReader(bytes.NewReader(content), 16)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 16)
}

func TestShorterTokenIsPrefixOfLonger(t *testing.T) {
	// within one algorithm, a shorter token is a truncation of a longer one
	content := []byte("prefix property")
	short, err := FromReader(bytes.NewReader(content), 16)
	require.NoError(t, err)
	long, err := FromReader(bytes.NewReader(content), 32)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(long, short))
}

func TestAlgorithmSwitchChangesToken(t *testing.T) {
	content := []byte("the switch point changes the digest primitive")
	at32, err := FromReader(bytes.NewReader(content), 32)
	require.NoError(t, err)
	at33, err := FromReader(bytes.NewReader(content), 33)
	require.NoError(t, err)
	assert.NotEqual(t, at32, at33[:32])
}

func TestEncodeBounds(t *testing.T) {
	digest := sha256.Sum256([]byte("x"))

	_, err := Encode(digest[:], 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrInvalidHashLength)

	_, err = Encode(digest[:], 65)
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrInvalidHashLength)

	// requesting more characters than the digest encodes to caps the token
	tok, err := Encode([]byte{0x01, 0x02}, 64)
	require.NoError(t, err)
	assert.Equal(t, base64.URLEncoding.EncodeToString([]byte{0x01, 0x02}), tok)
}

func TestTokenIsURLSafe(t *testing.T) {
	// digest picked so that the standard alphabet would emit + and /
	content := []byte("url safety matters for the links we hand out")
	tok, err := FromReader(bytes.NewReader(content), 64)
	require.NoError(t, err)
	assert.NotContains(t, tok, "+")
	assert.NotContains(t, tok, "/")
}

func TestLocal(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := []byte("local file content")
	require.NoError(t, afero.WriteFile(fs, "/data/report.pdf", content, 0o600))

	tok, err := Local(fs, "/data/report.pdf", 32)
	require.NoError(t, err)

	expected, err := FromReader(bytes.NewReader(content), 32)
	require.NoError(t, err)
	assert.Equal(t, expected, tok)

	_, err = Local(fs, "/data/missing.pdf", 32)
	require.Error(t, err)
}

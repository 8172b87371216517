// Package hashtoken computes the truncated content hashes that name and
// re-verify stored entries.
//
// A token is the URL-safe base64 encoding of the raw digest, truncated to the
// requested length. Lengths up to 32 characters use SHA-256, lengths of 33 to
// 64 use SHA-512. The switch point matters: it is also encoded in the remote
// command construction, and both sides must agree or verification will
// spuriously fail.
package hashtoken

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"hash"
	"io"

	"github.com/remoteshelf/shelf/pkg/status"
	"github.com/spf13/afero"
)

const (
	// MaxLength is the longest representable token (a full SHA-512 digest
	// encodes to 88 characters, but 64 keeps folder names manageable and
	// matches the configured prefix range)
	MaxLength = 64

	// sha256MaxLength is the largest token length served by SHA-256
	sha256MaxLength = 32
)

// Algorithm identifies the digest primitive backing a token length
type Algorithm struct {
	// Name of the hashing utility on the remote side
	Name string

	new func() hash.Hash
}

// New returns a fresh digest instance
func (a Algorithm) New() hash.Hash {
	return a.new()
}

var (
	sha256Algo = Algorithm{Name: "sha256sum", new: sha256.New}
	sha512Algo = Algorithm{Name: "sha512sum", new: sha512.New}
)

// AlgorithmFor selects the digest algorithm for a token length
func AlgorithmFor(length int) (Algorithm, error) {
	switch {
	case length <= 0 || length > MaxLength:
		return Algorithm{}, status.ErrInvalidHashLength.WrapMsg("got %d", length)
	case length <= sha256MaxLength:
		return sha256Algo, nil
	default:
		return sha512Algo, nil
	}
}

// Encode converts a raw digest into a token of the given length.
//
// The digest bytes are base64 encoded with the URL-safe alphabet, then the
// result is truncated, not re-encoded.
func Encode(digest []byte, length int) (string, error) {
	if length <= 0 || length > MaxLength {
		return "", status.ErrInvalidHashLength.WrapMsg("got %d", length)
	}
	encoded := base64.URLEncoding.EncodeToString(digest)
	if length > len(encoded) {
		length = len(encoded)
	}
	return encoded[:length], nil
}

// FromReader computes the token of a byte stream
func FromReader(r io.Reader, length int) (string, error) {
	algo, err := AlgorithmFor(length)
	if err != nil {
		return "", err
	}
	h := algo.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return Encode(h.Sum(nil), length)
}

// Local computes the token of a local file
func Local(fs afero.Fs, path string, length int) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return FromReader(f, length)
}

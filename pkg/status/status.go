// Package status exports errors produced by the catalog, selection,
// hashing and verification packages.
package status

import (
	"github.com/remoteshelf/shelf/pkg/errors"
)

var (
	// ErrInvalidHashLength indicates a requested hash truncation length of 0 or above 64
	ErrInvalidHashLength = errors.New("hash length must lie in [1, 64]")

	// ErrInvalidIndex indicates a selection index outside [-N, N) for a catalog of size N
	ErrInvalidIndex = errors.New("invalid index specified")

	// ErrNoMatchingRemoteFile indicates that no stored entry matches the content hash of a local file
	ErrNoMatchingRemoteFile = errors.New("no file with same hash found on remote")

	// ErrInvalidDuration indicates an unparsable or underflowing time window expression
	ErrInvalidDuration = errors.New("invalid duration specified")

	// ErrRemoteToolMissing indicates that a required utility is absent on the remote host
	ErrRemoteToolMissing = errors.New("required tool not found on remote site")

	// ErrHashCountMismatch indicates a remote hash batch returned the wrong number of results
	ErrHashCountMismatch = errors.New("remote returned unexpected number of hashes")

	// ErrStatCountMismatch indicates a remote stat call returned the wrong number of results
	ErrStatCountMismatch = errors.New("remote returned unexpected number of stat results")

	// ErrVerificationMismatch is the aggregate outcome when one or more entries fail verification
	ErrVerificationMismatch = errors.New("verification failed")

	// ErrRemoteCommandFailure indicates a non-zero exit from a remote command
	ErrRemoteCommandFailure = errors.New("remote command failed")

	// ErrNoEntry indicates that a selection did not resolve to exactly one entry
	ErrNoEntry = errors.New("no matching entry")
)

// Package verify compares the content hash each stored entry advertises
// through its folder name against a freshly computed remote hash.
//
// The store's invariant makes entries self-describing: at upload time the
// folder name is the truncated content token, so no local copy is needed to
// detect corruption later.
package verify

import (
	"context"
	"strings"

	"github.com/remoteshelf/shelf/pkg/catalog"
	"github.com/remoteshelf/shelf/pkg/hashtoken"
	"github.com/remoteshelf/shelf/pkg/remote"
	"github.com/remoteshelf/shelf/pkg/selection"
	"github.com/remoteshelf/shelf/pkg/status"
	"go.uber.org/zap"
)

// Outcome of verifying one entry
type Outcome struct {
	Entry    catalog.Entry
	Expected string
	Actual   string
}

// Verified reports whether expected and actual tokens agree
func (o Outcome) Verified() bool {
	return o.Expected == o.Actual
}

// Service verifies selections of stored entries
type Service struct {
	runner remote.Runner
	l      *zap.Logger
}

// Option configures the verification service
type Option func(*Service)

// Logger sets a logger for this service
func Logger(l *zap.Logger) Option {
	return func(s *Service) {
		s.l = l
	}
}

// New creates a verification service on top of a remote runner
func New(runner remote.Runner, opts ...Option) *Service {
	s := &Service{runner: runner, l: zap.NewNop()}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

// Verify computes remote hashes for every selected entry and compares them
// to the expected tokens derived from the entries' folder names.
//
// The expected token length is the folder name's character length, so the
// hashing algorithm is re-derived per entry. Entries sharing a length are
// hashed in common batches.
//
// The sweep deliberately never stops at the first mismatch: all entries are
// scanned, then a single aggregate error reports every failure.
func (s *Service) Verify(ctx context.Context, sel selection.Selection) ([]Outcome, error) {
	items := sel.Items()
	outcomes := make([]Outcome, len(items))
	byLength := make(map[int][]int) // token length -> positions in items

	for i, item := range items {
		prefix := item.Entry.Prefix()
		outcomes[i] = Outcome{Entry: item.Entry, Expected: prefix}
		byLength[len(prefix)] = append(byLength[len(prefix)], i)
	}

	for length, positions := range byLength {
		paths := make([]string, 0, len(positions))
		for _, pos := range positions {
			paths = append(paths, outcomes[pos].Entry.RelativePath)
		}
		tokens, err := hashtoken.Remote(ctx, s.runner, paths, length, s.l)
		if err != nil {
			return nil, err
		}
		for i, pos := range positions {
			outcomes[pos].Actual = tokens[i]
		}
	}

	var failed []string
	for _, o := range outcomes {
		if o.Verified() {
			s.l.Debug("verified", zap.String("path", o.Entry.RelativePath))
			continue
		}
		s.l.Warn("hash mismatch",
			zap.String("path", o.Entry.RelativePath),
			zap.String("expected", o.Expected),
			zap.String("actual", o.Actual))
		failed = append(failed, o.Entry.RelativePath)
	}
	if len(failed) > 0 {
		return outcomes, status.ErrVerificationMismatch.
			WithOp("verify").
			WrapMsg("%d of %d entries failed: %s",
				len(failed), len(outcomes), strings.Join(failed, ", "))
	}
	return outcomes, nil
}

package selection

import (
	"context"
	"time"

	"github.com/remoteshelf/shelf/internal/duration"
	"github.com/remoteshelf/shelf/pkg/errors"
	"github.com/remoteshelf/shelf/pkg/remote"
	"github.com/remoteshelf/shelf/pkg/status"
	"go.uber.org/zap"
)

// statCache memoizes fetched stats for the lifetime of a selection.
// It is shared by pointer across all values derived in one pipeline and is
// never invalidated: remote state changes require a fresh catalog.
type statCache struct {
	populated bool
	byIndex   map[int]remote.Stat
}

func (c *statCache) get(index int) remote.Stat {
	return c.byIndex[index]
}

var errNoStater = errors.New("selection has no stat collaborator wired")

// ensureStats populates the cache on first demand.
//
// The fast path is one bulk scan of the whole store, filtered down to the
// selected subset. When the remote lacks the required utilities, fall back
// to one stat round trip per selected entry.
func (s Selection) ensureStats(ctx context.Context) error {
	if s.stats.populated {
		return nil
	}
	if s.stater == nil {
		return errNoStater.WithOp("with stats")
	}

	byIndex := make(map[int]remote.Stat, len(s.indices))
	if s.stater.CanBulkStat(ctx) {
		all, err := s.stater.BulkStat(ctx)
		if err != nil {
			return err
		}
		for _, idx := range s.indices {
			entry := s.cat.Entry(idx)
			st, ok := all[entry.RelativePath]
			if !ok {
				return status.ErrStatCountMismatch.
					WithOp("with stats").
					WithPath(entry.RelativePath).
					WrapMsg("bulk scan returned %d entries but missed selected entry", len(all))
			}
			byIndex[idx] = st
		}
	} else {
		s.l.Debug("bulk stat unavailable, falling back to per-entry stat")
		for i, idx := range s.indices {
			entry := s.cat.Entry(idx)
			s.l.Info("fetching stats",
				zap.Int("done", i),
				zap.Int("total", len(s.indices)),
				zap.String("path", entry.RelativePath))
			st, err := s.stater.StatEntry(ctx, entry.RelativePath)
			if err != nil {
				return err
			}
			byIndex[idx] = st
		}
	}

	if len(byIndex) != len(s.indices) {
		return status.ErrStatCountMismatch.
			WithOp("with stats").
			WrapMsg("requested %d, got %d", len(s.indices), len(byIndex))
	}

	s.stats.byIndex = byIndex
	s.stats.populated = true
	return nil
}

// cutoffEpoch resolves a user duration into the epoch second boundary
// `now - duration`
func cutoffEpoch(userDuration string) (int64, error) {
	d, err := duration.Parse(userDuration)
	if err != nil {
		return 0, status.ErrInvalidDuration.
			WithOp("select by time").
			Wrap(err)
	}
	now := time.Now().Unix()
	cutoff := now - int64(d/time.Second)
	if d < 0 || cutoff < 0 {
		return 0, status.ErrInvalidDuration.
			WithOp("select by time").
			WrapMsg("duration %q reaches back before the epoch", userDuration)
	}
	return cutoff, nil
}

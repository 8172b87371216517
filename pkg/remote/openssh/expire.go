package openssh

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/remoteshelf/shelf/internal/duration"
	"github.com/remoteshelf/shelf/pkg/remote"
	"github.com/remoteshelf/shelf/pkg/status"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// Expirer schedules removal of a stored entry through the remote at daemon
type Expirer struct {
	session *Session
	delay   time.Duration
}

// NewExpirer parses the expiration delay and probes the remote for at.
// The minimum delay is one minute, the granularity at offers.
func NewExpirer(ctx context.Context, session *Session, humanDelay string) (*Expirer, error) {
	delay, err := duration.Parse(humanDelay)
	if err != nil {
		return nil, status.ErrInvalidDuration.WithOp("expire").Wrap(err)
	}
	if delay < time.Minute {
		return nil, status.ErrInvalidDuration.
			WithOp("expire").
			WrapMsg("expiration delay needs to be at least one minute")
	}

	res, err := session.Run(ctx, "command -v at")
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, status.ErrRemoteToolMissing.
			WithOp("expire").
			WrapMsg("at not available on remote site")
	}
	return &Expirer{session: session, delay: delay}, nil
}

// Expire schedules removal of the entry's file and its hash folder.
//
// Returns the expected expiration time.
func (e *Expirer) Expire(ctx context.Context, relativePath string) (time.Time, error) {
	folder, _, _ := strings.Cut(relativePath, "/")

	script := "#!/usr/bin/env bash\n" +
		"rm -- " + remote.ShellQuote(e.session.AbsPath(relativePath)) + " && " +
		"rmdir -- " + remote.ShellQuote(e.session.AbsPath(folder)) + "\n"

	tmp := "/tmp/shelf-expire-" + ksuid.New().String() + ".sh"
	heredoc := "cat > " + remote.ShellQuote(tmp) + " <<'SHELF_EOF'\n" + script + "SHELF_EOF"
	if res, err := e.session.Run(ctx, heredoc); err != nil {
		return time.Time{}, err
	} else if res.ExitCode != 0 {
		return time.Time{}, status.ErrRemoteCommandFailure.
			WithOp("expire").
			WrapMsg("writing job script exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	minutes := int64(e.delay / time.Minute)
	res, err := e.session.Run(ctx,
		"at -f "+remote.ShellQuote(tmp)+" now + "+strconv.FormatInt(minutes, 10)+" minutes; rm -f -- "+remote.ShellQuote(tmp))
	if err != nil {
		return time.Time{}, err
	}
	if strings.Contains(res.Stderr, "No atd running") {
		return time.Time{}, status.ErrRemoteCommandFailure.
			WithOp("expire").
			WrapMsg("atd does not appear to be running on the remote site")
	}

	e.session.l.Debug("expiration scheduled",
		zap.String("path", relativePath),
		zap.Int64("minutes", minutes))
	return time.Now().Add(e.delay), nil
}

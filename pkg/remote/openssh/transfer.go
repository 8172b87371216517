package openssh

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/remoteshelf/shelf/pkg/remote"
	"github.com/remoteshelf/shelf/pkg/status"
	"go.uber.org/zap"
)

// Upload copies a local file to the given store-relative path via scp.
// A positive limitKBytes caps bandwidth; scp takes kbit/s.
func (s *Session) Upload(ctx context.Context, localPath, remotePath string, limitKBytes int) error {
	args := make([]string, 0, 8)
	if s.port != 0 {
		args = append(args, "-P", strconv.Itoa(s.port))
	}
	if limitKBytes > 0 {
		args = append(args, "-l", strconv.Itoa(limitKBytes*8))
	}
	args = append(args, localPath, s.destination()+":"+s.AbsPath(remotePath))

	s.l.Debug("uploading",
		zap.String("local", localPath),
		zap.String("remote", remotePath),
		zap.Int("limit_kbytes", limitKBytes))

	c := exec.CommandContext(ctx, "scp", args...)
	var stderr bytes.Buffer
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("scp failed for %s: %s: %w", localPath, strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

// MakeFolder creates a store-relative folder if it does not exist
func (s *Session) MakeFolder(ctx context.Context, path string) error {
	res, err := s.Run(ctx, "mkdir -p -- "+remote.ShellQuote(path))
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return status.ErrRemoteCommandFailure.
			WithOp("make folder").
			WithPath(path).
			WrapMsg("mkdir exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// RemoveFolder removes a store-relative folder and its contents
func (s *Session) RemoveFolder(ctx context.Context, path string) error {
	q := remote.ShellQuote(path)
	res, err := s.Run(ctx, "[ -d "+q+" ] && rm -rvf -- "+q)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return status.ErrRemoteCommandFailure.
			WithOp("remove folder").
			WithPath(path).
			WrapMsg("rm exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	for _, line := range res.Lines() {
		s.l.Info(line)
	}
	return nil
}

// Move renames a stored entry
func (s *Session) Move(ctx context.Context, oldPath, newPath string) error {
	res, err := s.Run(ctx, "mv -- "+remote.ShellQuote(oldPath)+" "+remote.ShellQuote(newPath))
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return status.ErrRemoteCommandFailure.
			WithOp("move").
			WithPath(oldPath).
			WrapMsg("mv exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// AdjustGroup recursively changes the group of a stored folder, so that the
// web server can read freshly uploaded files
func (s *Session) AdjustGroup(ctx context.Context, path, group string) error {
	res, err := s.Run(ctx, "chown -R :"+group+" -- "+remote.ShellQuote(path))
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return status.ErrRemoteCommandFailure.
			WithOp("adjust group").
			WithPath(path).
			WrapMsg("chown exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Package openssh implements the remote collaborator interfaces on top of
// the system OpenSSH client. Connection settings (user, port, identities,
// agent, interactive prompts) are the ssh binary's concern; this package
// only builds commands and interprets their output.
package openssh

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/remoteshelf/shelf/pkg/errors"
	"github.com/remoteshelf/shelf/pkg/remote"
	"github.com/remoteshelf/shelf/pkg/status"
	"go.uber.org/zap"
)

// Session runs commands on one configured host, rooted at its store folder
type Session struct {
	hostname string
	user     string
	port     int
	folder   string
	l        *zap.Logger

	bulkStat *bool // memoized capability probe
}

var (
	_ remote.Runner   = &Session{}
	_ remote.Lister   = &Session{}
	_ remote.Stater   = &Session{}
	_ remote.Transfer = &Session{}
)

// Option configures a session
type Option func(*Session)

// User sets the login name. When empty, the ssh client configuration rules.
func User(user string) Option {
	return func(s *Session) {
		s.user = user
	}
}

// Port sets the ssh port. Zero leaves the choice to the ssh client.
func Port(port int) Option {
	return func(s *Session) {
		s.port = port
	}
}

// Logger sets a logger for this session
func Logger(l *zap.Logger) Option {
	return func(s *Session) {
		s.l = l
	}
}

// New creates a session for a host and its store root folder
func New(hostname, folder string, opts ...Option) *Session {
	s := &Session{
		hostname: hostname,
		folder:   folder,
		l:        zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

// Folder returns the store root on the remote host
func (s *Session) Folder() string {
	return s.folder
}

// AbsPath resolves a store-relative path against the store root
func (s *Session) AbsPath(relativePath string) string {
	return strings.TrimRight(s.folder, "/") + "/" + relativePath
}

func (s *Session) destination() string {
	if s.user != "" {
		return s.user + "@" + s.hostname
	}
	return s.hostname
}

// Run executes a shell command in the store root
func (s *Session) Run(ctx context.Context, cmd string) (remote.Result, error) {
	full := "cd " + remote.ShellQuote(s.folder) + " && " + cmd

	args := make([]string, 0, 6)
	if s.port != 0 {
		args = append(args, "-p", strconv.Itoa(s.port))
	}
	args = append(args, s.destination(), full)

	s.l.Debug("running remote command", zap.String("cmd", cmd))
	c := exec.CommandContext(ctx, "ssh", args...)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := remote.Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, fmt.Errorf("ssh invocation failed: %w", err)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}

// sshClientFailure is the exit code the ssh client reserves for its own
// connection and usage errors, as opposed to the remote command's status
const sshClientFailure = 255

// ListStore lists all stored entries, oldest first
func (s *Session) ListStore(ctx context.Context) ([]string, error) {
	res, err := s.Run(ctx, "ls -1rt */*")
	if err != nil {
		return nil, err
	}
	return s.storeListing(res)
}

// storeListing interprets the listing result. An empty store makes the glob
// fail in the remote shell, which is benign; exit 255 or an ssh diagnostic on
// stderr means the connection itself failed and must not read as empty.
func (s *Session) storeListing(res remote.Result) ([]string, error) {
	if res.ExitCode == 0 {
		return res.Lines(), nil
	}
	transportFailure := res.ExitCode == sshClientFailure || strings.Contains(res.Stderr, "ssh:")
	if !transportFailure && strings.TrimSpace(res.Stdout) == "" {
		s.l.Debug("store listing empty", zap.Int("exit", res.ExitCode))
		return nil, nil
	}
	return nil, status.ErrRemoteCommandFailure.
		WithOp("list store").
		WrapMsg("listing exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
}

// CanBulkStat probes for GNU find -printf support. The result is memoized
// for the session lifetime.
func (s *Session) CanBulkStat(ctx context.Context) bool {
	if s.bulkStat != nil {
		return *s.bulkStat
	}
	res, err := s.Run(ctx, "find . -maxdepth 0 -printf ''")
	ok := err == nil && res.ExitCode == 0
	s.bulkStat = &ok
	s.l.Debug("bulk stat capability probed", zap.Bool("available", ok))
	return ok
}

// BulkStat scans the whole store in one round trip
func (s *Session) BulkStat(ctx context.Context) (map[string]remote.Stat, error) {
	res, err := s.Run(ctx, `find . -mindepth 2 -maxdepth 2 -type f -printf '%s %T@ %P\n'`)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, status.ErrRemoteCommandFailure.
			WithOp("bulk stat").
			WrapMsg("find exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	out := make(map[string]remote.Stat)
	for _, line := range res.Lines() {
		fields := strings.SplitN(line, " ", 3)
		if len(fields) != 3 {
			return nil, status.ErrRemoteCommandFailure.
				WithOp("bulk stat").
				WrapMsg("unparsable find output %q", line)
		}
		size, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, status.ErrRemoteCommandFailure.WithOp("bulk stat").Wrap(err)
		}
		// %T@ renders epoch seconds with a fractional part
		mtime, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, status.ErrRemoteCommandFailure.WithOp("bulk stat").Wrap(err)
		}
		out[fields[2]] = remote.Stat{Size: size, ModTime: int64(mtime)}
	}
	return out, nil
}

// StatEntry fetches stats for one entry
func (s *Session) StatEntry(ctx context.Context, path string) (remote.Stat, error) {
	res, err := s.Run(ctx, "stat -c '%s %Y' -- "+remote.ShellQuote(path))
	if err != nil {
		return remote.Stat{}, err
	}
	switch res.ExitCode {
	case 0:
	case remote.ExitCodeToolMissing:
		return remote.Stat{}, status.ErrRemoteToolMissing.
			WithOp("stat").
			WrapMsg("stat not found on remote site")
	default:
		return remote.Stat{}, status.ErrRemoteCommandFailure.
			WithOp("stat").
			WithPath(path).
			WrapMsg("stat exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	fields := strings.Fields(strings.TrimSpace(res.Stdout))
	if len(fields) != 2 {
		return remote.Stat{}, status.ErrRemoteCommandFailure.
			WithOp("stat").
			WithPath(path).
			WrapMsg("unparsable stat output %q", res.Stdout)
	}
	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return remote.Stat{}, status.ErrRemoteCommandFailure.WithOp("stat").Wrap(err)
	}
	mtime, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return remote.Stat{}, status.ErrRemoteCommandFailure.WithOp("stat").Wrap(err)
	}
	return remote.Stat{Size: size, ModTime: mtime}, nil
}

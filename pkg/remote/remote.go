// Package remote defines the collaborator interfaces through which the
// catalog, selection and verification engines reach the machine hosting the
// store. Implementations are assumed to be fairly simple: a shell-capable
// execution channel plus a file transfer path.
//
// All commands run with the store root as working directory, so that paths
// exchanged through these interfaces stay relative (hash-prefix/filename).
package remote

import (
	"context"
	"strings"
	"time"
)

// ExitCodeToolMissing is the reserved shell exit code for "command not found".
const ExitCodeToolMissing = 127

// Result of a remote command invocation
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Lines splits stdout into non-empty lines
func (r Result) Lines() []string {
	out := make([]string, 0, 16)
	for _, l := range strings.Split(r.Stdout, "\n") {
		if l = strings.TrimRight(l, "\r"); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Stat holds remote metadata for one stored entry
type Stat struct {
	// Size in bytes
	Size int64

	// ModTime as epoch seconds, as reported by the remote site
	ModTime int64
}

// Time returns the modification time
func (s Stat) Time() time.Time {
	return time.Unix(s.ModTime, 0)
}

// Runner executes a shell command on the remote host, in the store root.
//
// A non-nil error means the channel itself failed; a non-zero exit code is
// reported through Result and left to the caller to interpret.
type Runner interface {
	Run(ctx context.Context, cmd string) (Result, error)
}

// Lister produces the relative paths of all stored entries, oldest first
// by modification time as reported by the remote site at listing time.
type Lister interface {
	ListStore(ctx context.Context) ([]string, error)
}

// Stater retrieves size and modification time for stored entries.
//
// BulkStat scans the whole store in one round trip and is preferred when the
// probe reports it available. StatEntry is the slow path, one round trip per
// entry.
type Stater interface {
	CanBulkStat(ctx context.Context) bool
	BulkStat(ctx context.Context) (map[string]Stat, error)
	StatEntry(ctx context.Context, path string) (Stat, error)
}

// Transfer moves bytes and directory structure on the remote store
type Transfer interface {
	// Upload copies a local file to the given relative path. A positive
	// limitKBytes caps the transfer bandwidth in kilobytes per second.
	Upload(ctx context.Context, localPath, remotePath string, limitKBytes int) error
	MakeFolder(ctx context.Context, path string) error
	RemoveFolder(ctx context.Context, path string) error
	Move(ctx context.Context, oldPath, newPath string) error
	AdjustGroup(ctx context.Context, path, group string) error
}

// ShellQuote renders a string safe for inclusion in a remote shell command
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

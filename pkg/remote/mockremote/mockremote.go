// Package mockremote provides an in-memory remote store for tests.
//
// It implements the runner, lister, stater and transfer collaborators over a
// map of stored entries, and understands just enough shell to serve the hash
// commands the engines construct.
package mockremote

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/remoteshelf/shelf/pkg/remote"
	"github.com/spf13/afero"
)

type object struct {
	content []byte
	modTime int64
}

// Remote is a fake remote store
type Remote struct {
	mu      sync.Mutex
	objects map[string]object
	clock   int64

	// BulkStatAvailable controls the capability probe
	BulkStatAvailable bool

	// MissingTools simulates absent remote utilities (exit 127)
	MissingTools map[string]bool

	// LocalFs backs Upload's source files
	LocalFs afero.Fs

	// Groups records AdjustGroup calls as path -> group
	Groups map[string]string
}

var (
	_ remote.Runner   = &Remote{}
	_ remote.Lister   = &Remote{}
	_ remote.Stater   = &Remote{}
	_ remote.Transfer = &Remote{}
)

// New creates an empty fake remote with bulk stat enabled
func New() *Remote {
	return &Remote{
		objects:           map[string]object{},
		clock:             time.Now().Unix() - 1000000,
		BulkStatAvailable: true,
		MissingTools:      map[string]bool{},
		LocalFs:           afero.NewMemMapFs(),
		Groups:            map[string]string{},
	}
}

// Put stores an entry with an auto-advancing modification time, so that
// insertion order matches the oldest-first listing order
func (r *Remote) Put(relativePath string, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock++
	r.objects[relativePath] = object{content: append([]byte(nil), content...), modTime: r.clock}
}

// PutAt stores an entry with an explicit modification time
func (r *Remote) PutAt(relativePath string, content []byte, modTime int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[relativePath] = object{content: append([]byte(nil), content...), modTime: modTime}
}

// Corrupt rewrites the content of a stored entry without renaming its
// folder, which is exactly what verification is meant to catch
func (r *Remote) Corrupt(relativePath string, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.objects[relativePath]
	if !ok {
		panic(fmt.Sprintf("mockremote: no such entry %q", relativePath))
	}
	o.content = append([]byte(nil), content...)
	r.objects[relativePath] = o
}

// Has reports whether an entry is stored
func (r *Remote) Has(relativePath string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.objects[relativePath]
	return ok
}

// ListStore returns all entries sorted oldest first
func (r *Remote) ListStore(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.objects))
	for p := range r.objects {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		oi, oj := r.objects[paths[i]], r.objects[paths[j]]
		if oi.modTime != oj.modTime {
			return oi.modTime < oj.modTime
		}
		return paths[i] < paths[j]
	})
	return paths, nil
}

// CanBulkStat reports the configured capability
func (r *Remote) CanBulkStat(_ context.Context) bool {
	return r.BulkStatAvailable
}

// BulkStat returns stats for the whole store
func (r *Remote) BulkStat(_ context.Context) (map[string]remote.Stat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]remote.Stat, len(r.objects))
	for p, o := range r.objects {
		out[p] = remote.Stat{Size: int64(len(o.content)), ModTime: o.modTime}
	}
	return out, nil
}

// StatEntry returns stats for one entry
func (r *Remote) StatEntry(_ context.Context, path string) (remote.Stat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.objects[path]
	if !ok {
		return remote.Stat{}, fmt.Errorf("mockremote: no such entry %q", path)
	}
	return remote.Stat{Size: int64(len(o.content)), ModTime: o.modTime}, nil
}

// Run serves the shell commands the engines construct. Hashing utilities
// honor MissingTools and emit hex digests like their coreutils counterparts.
func (r *Remote) Run(_ context.Context, cmd string) (remote.Result, error) {
	words, err := splitWords(cmd)
	if err != nil {
		return remote.Result{}, err
	}
	if len(words) == 0 {
		return remote.Result{ExitCode: 2, Stderr: "empty command"}, nil
	}

	tool := words[0]
	if r.MissingTools[tool] {
		return remote.Result{
			ExitCode: remote.ExitCodeToolMissing,
			Stderr:   fmt.Sprintf("sh: %s: command not found", tool),
		}, nil
	}

	switch tool {
	case "sha256sum", "sha512sum":
		return r.runHash(tool, words[1:])
	case "command":
		// capability probe: command -v <tool>
		if len(words) == 3 && words[1] == "-v" {
			if r.MissingTools[words[2]] {
				return remote.Result{ExitCode: 1}, nil
			}
			return remote.Result{Stdout: "/usr/bin/" + words[2] + "\n"}, nil
		}
		return remote.Result{ExitCode: 2, Stderr: "unsupported command invocation"}, nil
	default:
		return remote.Result{
			ExitCode: remote.ExitCodeToolMissing,
			Stderr:   fmt.Sprintf("sh: %s: command not found", tool),
		}, nil
	}
}

func (r *Remote) runHash(tool string, args []string) (remote.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out strings.Builder
	for _, p := range args {
		if p == "--" {
			continue
		}
		o, ok := r.objects[p]
		if !ok {
			return remote.Result{
				ExitCode: 1,
				Stderr:   fmt.Sprintf("%s: %s: No such file or directory", tool, p),
			}, nil
		}
		var digest []byte
		if tool == "sha256sum" {
			d := sha256.Sum256(o.content)
			digest = d[:]
		} else {
			d := sha512.Sum512(o.content)
			digest = d[:]
		}
		fmt.Fprintf(&out, "%s  %s\n", hex.EncodeToString(digest), p)
	}
	return remote.Result{Stdout: out.String()}, nil
}

// Upload stores the content of a local file under the given path
func (r *Remote) Upload(_ context.Context, localPath, remotePath string, _ int) error {
	content, err := afero.ReadFile(r.LocalFs, localPath)
	if err != nil {
		return err
	}
	r.Put(remotePath, content)
	return nil
}

// MakeFolder is a no-op: the object map has no real directories
func (r *Remote) MakeFolder(_ context.Context, _ string) error {
	return nil
}

// RemoveFolder deletes all entries below the given folder
func (r *Remote) RemoveFolder(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := strings.TrimRight(path, "/") + "/"
	for p := range r.objects {
		if strings.HasPrefix(p, prefix) {
			delete(r.objects, p)
		}
	}
	return nil
}

// Move renames a stored entry, keeping its content and mtime
func (r *Remote) Move(_ context.Context, oldPath, newPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.objects[oldPath]
	if !ok {
		return fmt.Errorf("mockremote: no such entry %q", oldPath)
	}
	delete(r.objects, oldPath)
	r.objects[newPath] = o
	return nil
}

// AdjustGroup records the requested group change
func (r *Remote) AdjustGroup(_ context.Context, path, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Groups[path] = group
	return nil
}

// splitWords splits a command into words, honoring single quotes the way the
// engines quote their arguments
func splitWords(cmd string) ([]string, error) {
	var words []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		switch {
		case c == '\'':
			// the quoting helper renders ' as '\''
			if inQuote && strings.HasPrefix(cmd[i:], `'\''`) {
				cur.WriteByte('\'')
				i += 3
				continue
			}
			inQuote = !inQuote
		case c == ' ' && !inQuote:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unbalanced quote in command %q", cmd)
	}
	flush()
	return words, nil
}

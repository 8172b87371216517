package hashtoken

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/remoteshelf/shelf/pkg/remote"
	"github.com/remoteshelf/shelf/pkg/status"
	"go.uber.org/zap"
)

// remoteBatchSize bounds the number of paths hashed per remote invocation.
// Batching amortizes round trips without hitting command line length limits.
const remoteBatchSize = 64

// Remote computes tokens for stored entries by invoking the hashing utility
// on the remote side. Tokens come back in input order.
//
// The remote utility emits hexadecimal digests; these are decoded and
// re-encoded to URL-safe base64 locally so that both sides share one
// canonical token form.
func Remote(ctx context.Context, runner remote.Runner, paths []string, length int, l *zap.Logger) ([]string, error) {
	algo, err := AlgorithmFor(length)
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = zap.NewNop()
	}

	tokens := make([]string, 0, len(paths))
	for start := 0; start < len(paths); start += remoteBatchSize {
		end := start + remoteBatchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch, err := remoteBatch(ctx, runner, algo, paths[start:end], length, l)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, batch...)
	}

	if len(tokens) != len(paths) {
		return nil, status.ErrHashCountMismatch.
			WithOp("hash remote").
			WrapMsg("requested %d, got %d", len(paths), len(tokens))
	}
	return tokens, nil
}

func remoteBatch(ctx context.Context, runner remote.Runner, algo Algorithm, paths []string, length int, l *zap.Logger) ([]string, error) {
	quoted := make([]string, 0, len(paths))
	for _, p := range paths {
		quoted = append(quoted, remote.ShellQuote(p))
	}
	cmd := algo.Name + " -- " + strings.Join(quoted, " ")
	l.Debug("hashing remote batch", zap.Int("files", len(paths)), zap.String("tool", algo.Name))

	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	switch res.ExitCode {
	case 0:
	case remote.ExitCodeToolMissing:
		return nil, status.ErrRemoteToolMissing.
			WithOp("hash remote").
			WrapMsg("%s not found on remote site", algo.Name)
	default:
		return nil, status.ErrRemoteCommandFailure.
			WithOp("hash remote").
			WrapMsg("%s exited with %d: %s", algo.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	lines := res.Lines()
	if len(lines) != len(paths) {
		return nil, status.ErrHashCountMismatch.
			WithOp("hash remote").
			WrapMsg("requested %d, got %d", len(paths), len(lines))
	}

	tokens := make([]string, 0, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil, status.ErrRemoteCommandFailure.
				WithOp("hash remote").
				WithPath(paths[i]).
				WrapMsg("no hash found in output line %q", line)
		}
		digest, err := hex.DecodeString(fields[0])
		if err != nil {
			return nil, status.ErrRemoteCommandFailure.
				WithOp("hash remote").
				WithPath(paths[i]).
				WrapMsg("invalid hash %q: %v", fields[0], err)
		}
		token, err := Encode(digest, length)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

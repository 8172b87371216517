package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/remoteshelf/shelf/pkg/config"
	"github.com/remoteshelf/shelf/pkg/hashtoken"
	"github.com/remoteshelf/shelf/pkg/remote/openssh"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pushOptions struct {
	aliases    []string
	prefix     string
	suffix     string
	expire     string
	limitMbits float64
	limitKB    float64
}

var pushCmd = &cobra.Command{
	Use:   "push [files...]",
	Short: "Upload new files",
	Long: `Upload new files.

Each file is stored remotely under a folder named by the truncated hash of
its content. Identical content therefore maps to the same folder, and the
printed URL stays stable for as long as the file remains on the shelf.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		o := &pushOptions

		if len(args) == 0 {
			if len(o.aliases) > 0 {
				wrapFatalf("no files to upload specified. Did you forget to separate --alias from the files with a double dash?")
			}
			wrapFatalf("no files to upload specified")
		}
		if len(o.aliases) > 0 && len(o.aliases) != len(args) {
			wrapFatalf("you need to specify as many aliases as files (%d aliases, %d files)", len(o.aliases), len(args))
		}

		targetNames := o.aliases
		if len(targetNames) == 0 {
			targetNames = make([]string, 0, len(args))
			for _, f := range args {
				targetNames = append(targetNames, transformFilename(f, o.prefix, o.suffix))
			}
		}

		host := currentHost()
		session := newSession(ctx, host)

		var expirer *openssh.Expirer
		if o.expire != "" {
			var err error
			expirer, err = openssh.NewExpirer(ctx, session, o.expire)
			if err != nil {
				wrapFatalln("set up expiration", err)
			}
		}

		limitKBytes := 0
		switch {
		case o.limitMbits > 0:
			limitKBytes = int(o.limitMbits * 1024 / 8)
		case o.limitKB > 0:
			limitKBytes = int(o.limitKB)
		}

		for i, localPath := range args {
			uploadOne(ctx, session, host, expirer, localPath, targetNames[i], limitKBytes)
		}
	},
}

func uploadOne(
	ctx context.Context,
	session *openssh.Session,
	host *config.Host,
	expirer *openssh.Expirer,
	localPath, targetName string,
	limitKBytes int,
) {
	token, err := hashtoken.Local(afero.NewOsFs(), localPath, host.PrefixLength)
	if err != nil {
		wrapFatalln(fmt.Sprintf("could not read %s to compute hash", localPath), err)
	}
	remotePath := token + "/" + targetName

	if err := session.MakeFolder(ctx, token); err != nil {
		wrapFatalln("create remote folder", err)
	}
	if err := session.Upload(ctx, localPath, remotePath, limitKBytes); err != nil {
		wrapFatalln("upload", err)
	}

	if cfg.VerifyAfterUpload() {
		logger.Debug("verifying upload", zap.String("path", remotePath))
		tokens, err := hashtoken.Remote(ctx, session, []string{remotePath}, host.PrefixLength, logger)
		if err != nil {
			wrapFatalln("verify upload", err)
		}
		if tokens[0] != token {
			// do not leave a corrupt upload behind
			if rmErr := session.RemoveFolder(ctx, token); rmErr != nil {
				logger.Warn("could not remove failed upload", zap.Error(rmErr))
			}
			wrapFatalf("[%s] hashes differ: local=%s remote=%s", localPath, token, tokens[0])
		}
	}

	if host.Group != "" {
		if err := session.AdjustGroup(ctx, token, host.Group); err != nil {
			wrapFatalln("adjust group", err)
		}
	}

	if expirer != nil {
		expiresAt, err := expirer.Expire(ctx, remotePath)
		if err != nil {
			wrapFatalln("schedule expiration", err)
		}
		fmt.Fprintln(rootCmd.ErrOrStderr(),
			color.New(color.FgYellow).Sprintf("[expiring: %s]", expiresAt.Format("Mon, 02 Jan 2006 15:04:05 -0700")))
	}

	fmt.Println(host.GetURL(remotePath))
}

// transformFilename derives the remote file name, applying prefix and suffix
// while keeping the last extension in place
func transformFilename(localPath, prefix, suffix string) string {
	base := filepath.Base(localPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return prefix + stem + suffix + ext
}

func init() {
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().StringSliceVarP(&pushOptions.aliases, "alias", "a", nil, "name to store the file under on the remote site, one per file")
	pushCmd.Flags().StringVarP(&pushOptions.prefix, "prefix", "p", "", "prepend the given prefix to every uploaded file name")
	pushCmd.Flags().StringVarP(&pushOptions.suffix, "suffix", "x", "", "append the given suffix to every uploaded file name, keeping the extension")
	pushCmd.Flags().StringVarP(&pushOptions.expire, "expire", "e", "", "expire the uploaded file after the given duration (minimum one minute)")
	pushCmd.Flags().Float64VarP(&pushOptions.limitMbits, "limit-mbits", "l", 0, "limit upload speed in Mbit/s")
	pushCmd.Flags().Float64VarP(&pushOptions.limitKB, "limit-kbytes", "L", 0, "limit upload speed in kByte/s")
	pushCmd.MarkFlagsMutuallyExclusive("limit-mbits", "limit-kbytes")
	pushCmd.MarkFlagsMutuallyExclusive("alias", "prefix")
	pushCmd.MarkFlagsMutuallyExclusive("alias", "suffix")
}

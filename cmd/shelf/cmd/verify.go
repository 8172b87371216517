package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/remoteshelf/shelf/pkg/catalog"
	"github.com/remoteshelf/shelf/pkg/verify"
	"github.com/spf13/cobra"
)

var verifyOptions struct {
	selectionFlags
}

var verifyCmd = &cobra.Command{
	Use:   "verify [indices...]",
	Short: "Verify the integrity of remote files",
	Long: `Verify the integrity of remote files.

Every stored file lives in a folder named by the truncated hash of its
content, so the store can be checked for corruption without any local copy:
the remote side re-hashes each file and the result is compared against the
folder name. Without any selection, all files are verified.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		host := currentHost()
		session := newSession(ctx, host)

		indices, err := parseIndices(args)
		if err != nil {
			wrapFatalln("parse indices", err)
		}

		cat, err := catalog.Build(ctx, session, logger)
		if err != nil {
			wrapFatalln("list remote files", err)
		}

		o := &verifyOptions
		sel, err := o.buildSelection(ctx, cat, host, session, indices, true, true, false)
		if err != nil {
			wrapFatalln("select remote files", err)
		}
		if sel.Count() == 0 {
			fmt.Println("Nothing selected, nothing to verify.")
			return
		}

		outcomes, verr := verify.New(session, verify.Logger(logger)).Verify(ctx, sel)
		if outcomes == nil && verr != nil {
			wrapFatalln("verify remote files", verr)
		}

		good := color.New(color.FgGreen).Sprint("ok")
		bad := color.New(color.FgRed, color.Bold).Sprint("MISMATCH")
		for _, outcome := range outcomes {
			if outcome.Verified() {
				fmt.Printf("%s\t%s\n", good, outcome.Entry.RelativePath)
			} else {
				fmt.Printf("%s\t%s (expected %s, got %s)\n",
					bad, outcome.Entry.RelativePath, outcome.Expected, outcome.Actual)
			}
		}

		if verr != nil {
			wrapFatalln("verification failed", verr)
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addSelectionFlags(verifyCmd, &verifyOptions.selectionFlags)
	verifyCmd.Flags().BoolVar(&verifyOptions.all, "all", false, "verify all remote files")
}

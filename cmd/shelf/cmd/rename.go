package cmd

import (
	"fmt"
	"strconv"

	"github.com/remoteshelf/shelf/pkg/catalog"
	"github.com/remoteshelf/shelf/pkg/selection"
	"github.com/remoteshelf/shelf/pkg/status"
	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename {index|file} new-name",
	Short: "Rename an already uploaded file, keeping its URL folder",
	Long: `Rename an already uploaded file, keeping its URL folder.

The file to rename is picked either by its catalog index (possibly negative,
-1 being the newest entry) or by a path to the identical local file, whose
content hash selects the remote counterpart. The hash folder stays the same,
only the name below it changes.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		host := currentHost()
		session := newSession(ctx, host)

		cat, err := catalog.Build(ctx, session, logger)
		if err != nil {
			wrapFatalln("list remote files", err)
		}

		sel := selection.New(cat, selection.Logger(logger))
		if idx, convErr := strconv.Atoi(args[0]); convErr == nil {
			sel, err = sel.ByIndices([]int{idx})
		} else {
			sel, err = sel.ByHash([]string{args[0]}, host.PrefixLength, true)
		}
		if err != nil {
			wrapFatalln("select file to rename", err)
		}

		entry, err := singleEntry(sel)
		if err != nil {
			wrapFatalln("select file to rename", err)
		}
		newPath := entry.Prefix() + "/" + args[1]
		if err := session.Move(ctx, entry.RelativePath, newPath); err != nil {
			wrapFatalln("rename remote file", err)
		}
		fmt.Println(host.GetURL(newPath))
	},
}

// singleEntry expects the selection to resolve to exactly one stored entry
func singleEntry(sel selection.Selection) (catalog.Entry, error) {
	items := sel.Items()
	if len(items) != 1 {
		return catalog.Entry{}, status.ErrNoEntry.
			WithOp("rename").
			WrapMsg("%d entries match, need exactly one", len(items))
	}
	return items[0].Entry, nil
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

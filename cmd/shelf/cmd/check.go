package cmd

import (
	"fmt"

	"github.com/remoteshelf/shelf/pkg/catalog"
	"github.com/remoteshelf/shelf/pkg/selection"
	"github.com/spf13/cobra"
)

var checkOptions struct {
	urlOnly  bool
	withSize bool
	withTime bool
}

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Check whether local files are already present on the remote site",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		host := currentHost()
		session := newSession(ctx, host)

		cat, err := catalog.Build(ctx, session, logger)
		if err != nil {
			wrapFatalln("list remote files", err)
		}

		o := &checkOptions
		sel, found, err := matchLocalFiles(cat, args, host.PrefixLength,
			selection.Stater(session),
			selection.Logger(logger),
		)
		if err != nil {
			wrapFatalln("match local files", err)
		}
		sel, err = sel.WithStats(ctx, o.withSize || o.withTime)
		if err != nil {
			wrapFatalln("fetch stats", err)
		}

		for _, item := range sel.Items() {
			if o.urlOnly {
				fmt.Println(host.GetURL(item.Entry.RelativePath))
				continue
			}
			line := host.GetURL(item.Entry.RelativePath)
			if item.Stat != nil {
				line = fmt.Sprintf("%d\t%d\t%s", item.Stat.Size, item.Stat.ModTime, line)
			}
			fmt.Println(line)
		}

		if found != len(args) {
			wrapFatalf("number of files expected/found differs: %d/%d", len(args), found)
		}
	},
}

// matchLocalFiles resolves each local file against the catalog. The selection
// dedupes entries, so files with identical content share one entry; found
// still counts every file that has a remote counterpart.
func matchLocalFiles(cat *catalog.Catalog, files []string, prefixLength int, opts ...selection.Option) (selection.Selection, int, error) {
	sel := selection.New(cat, opts...)
	found := 0
	for _, f := range files {
		match, err := selection.New(cat, opts...).ByHash([]string{f}, prefixLength, false)
		if err != nil {
			return sel, 0, err
		}
		if match.Count() == 0 {
			continue
		}
		found++
		sel, err = sel.ByIndices(match.Indices())
		if err != nil {
			return sel, 0, err
		}
	}
	return sel, found, nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVarP(&checkOptions.urlOnly, "url-only", "u", false, "only print the remote URLs")
	checkCmd.Flags().BoolVarP(&checkOptions.withSize, "with-size", "s", false, "print file sizes")
	checkCmd.Flags().BoolVarP(&checkOptions.withTime, "with-time", "t", false, "print remote modification times")
}

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/remoteshelf/shelf/pkg/catalog"
	"github.com/spf13/cobra"
)

var cleanOptions struct {
	selectionFlags
	noConfirm bool
}

var cleanCmd = &cobra.Command{
	Use:   "clean [indices...]",
	Short: "Delete already uploaded files",
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

		o := &cleanOptions
		sel, err := o.buildSelection(ctx, cat, host, session, indices, false, true, false)
		if err != nil {
			wrapFatalln("select remote files", err)
		}
		if sel.Count() == 0 {
			fmt.Println("Nothing selected, nothing to clean.")
			return
		}

		if !o.noConfirm && !confirmDeletion(sel.Count(), func(print func(string)) {
			for _, item := range sel.Items() {
				print(item.Entry.RelativePath)
			}
		}) {
			return
		}

		for _, item := range sel.Items() {
			if strings.Count(item.Entry.RelativePath, "/") != 1 {
				wrapFatalf("invalid remote path: %s", item.Entry.RelativePath)
			}
			if err := session.RemoveFolder(ctx, item.Entry.Prefix()); err != nil {
				wrapFatalln("remove remote folder", err)
			}
		}
	},
}

func confirmDeletion(count int, each func(print func(string))) bool {
	fmt.Println(color.New(color.Bold).Sprintf("Will delete the following %d files:", count))
	dot := color.New(color.FgRed).Sprint("*")
	each(func(path string) {
		fmt.Printf(" %s %s\n", dot, path)
	})
	fmt.Print("\nDelete files? [y/N] ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		fmt.Println("Aborted.")
		return false
	}
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	addSelectionFlags(cleanCmd, &cleanOptions.selectionFlags)
	cleanCmd.Flags().BoolVar(&cleanOptions.all, "all", false, "delete all remote files (dangerous)")
	cleanCmd.Flags().BoolVar(&cleanOptions.noConfirm, "no-confirm", false, "do not ask before deleting")
}

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"
	"github.com/remoteshelf/shelf/pkg/catalog"
	"github.com/remoteshelf/shelf/pkg/config"
	"github.com/remoteshelf/shelf/pkg/selection"
	"github.com/spf13/cobra"
)

var listOptions struct {
	selectionFlags
	details      bool
	filenames    bool
	urlOnly      bool
	printIndices bool
	jsonOut      bool
	withSize     bool
	withTime     bool
}

// listEntry is the machine readable form of one listed entry
type listEntry struct {
	Index   int    `json:"index"`
	Path    string `json:"path"`
	URL     string `json:"url"`
	Size    *int64 `json:"size,omitempty"`
	ModTime *int64 `json:"mtime,omitempty"`
}

var listCmd = &cobra.Command{
	Use:   "list [indices...]",
	Short: "List uploaded files and their URLs",
	Long: `List uploaded files and their URLs.

Indices are positional within the current remote listing (oldest first) and
may be negative to count from the end: -1 is the newest entry. Without any
selection, all files are listed.`,
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

		o := &listOptions
		withStats := o.details || o.withSize || o.withTime
		allIfNone := o.filter == "" && len(o.files) == 0
		sel, err := o.buildSelection(ctx, cat, host, session, indices, allIfNone, false, withStats)
		if err != nil {
			wrapFatalln("select remote files", err)
		}

		switch {
		case o.urlOnly:
			for _, item := range sel.Items() {
				fmt.Println(host.GetURL(item.Entry.RelativePath))
			}
		case o.printIndices:
			out := make([]string, 0, sel.Count())
			for _, idx := range sel.Indices() {
				out = append(out, fmt.Sprint(idx))
			}
			fmt.Println(strings.Join(out, " "))
		case o.jsonOut:
			printJSON(sel, host)
		default:
			printListing(sel, host)
		}
	},
}

func printJSON(sel selection.Selection, host *config.Host) {
	entries := make([]listEntry, 0, sel.Count())
	for _, item := range sel.Items() {
		e := listEntry{
			Index: item.Index,
			Path:  item.Entry.RelativePath,
			URL:   host.GetURL(item.Entry.RelativePath),
		}
		if item.Stat != nil {
			e.Size = &item.Stat.Size
			e.ModTime = &item.Stat.ModTime
		}
		entries = append(entries, e)
	}
	out, err := jsoniter.MarshalIndent(entries, "", "  ")
	if err != nil {
		wrapFatalln("marshal listing", err)
	}
	fmt.Println(string(out))
}

func printListing(sel selection.Selection, host *config.Host) {
	numFiles := sel.Catalog().Len()
	tty := isatty.IsTerminal(os.Stdout.Fd())

	if tty {
		fmt.Println(color.New(color.Bold, color.FgHiGreen).Sprintf("Listing %d remote files:", sel.Count()))
		table := uitable.New()
		table.MaxColWidth = 120
		for _, item := range sel.Items() {
			table.AddRow(listingColumns(item, numFiles, host)...)
		}
		fmt.Println(table)
		return
	}
	for _, item := range sel.Items() {
		cols := listingColumns(item, numFiles, host)
		parts := make([]string, 0, len(cols))
		for _, c := range cols {
			parts = append(parts, fmt.Sprint(c))
		}
		fmt.Println(strings.Join(parts, "\t"))
	}
}

// listingColumns renders index, reverse index, optional stats and the
// display name of one entry
func listingColumns(item selection.Item, numFiles int, host *config.Host) []interface{} {
	o := &listOptions
	cols := []interface{}{item.Index, item.Index - numFiles}
	if (o.details || o.withSize) && item.Stat != nil {
		cols = append(cols, units.HumanSize(float64(item.Stat.Size)))
	}
	if (o.details || o.withTime) && item.Stat != nil {
		cols = append(cols, item.Stat.Time().Format("2006-01-02 15:04:05"))
	}
	if o.filenames {
		cols = append(cols, item.Entry.Name())
	} else {
		cols = append(cols, host.GetURL(item.Entry.RelativePath))
	}
	return cols
}

func init() {
	rootCmd.AddCommand(listCmd)
	addSelectionFlags(listCmd, &listOptions.selectionFlags)
	listCmd.Flags().BoolVarP(&listOptions.details, "details", "d", false, "show all details")
	listCmd.Flags().BoolVar(&listOptions.filenames, "filenames", false, "print filenames instead of full urls")
	listCmd.Flags().BoolVarP(&listOptions.urlOnly, "url-only", "u", false, "only print the remote URLs, for copying and scripting")
	listCmd.Flags().BoolVarP(&listOptions.printIndices, "indices", "i", false, "only print the selected indices")
	listCmd.Flags().BoolVar(&listOptions.jsonOut, "json", false, "print the listing as json")
	listCmd.Flags().BoolVarP(&listOptions.withSize, "with-size", "s", false, "print file sizes")
	listCmd.Flags().BoolVarP(&listOptions.withTime, "with-time", "t", false, "print remote modification times")
}

package cmd

import (
	"context"
	"strconv"

	"github.com/remoteshelf/shelf/pkg/catalog"
	"github.com/remoteshelf/shelf/pkg/config"
	"github.com/remoteshelf/shelf/pkg/remote"
	"github.com/remoteshelf/shelf/pkg/selection"
	"github.com/spf13/cobra"
)

// selectionFlags are the flags shared by every command that picks a subset
// of the remote catalog
type selectionFlags struct {
	files    []string
	filter   string
	newer    string
	older    string
	all      bool
	sortSize bool
	sortTime bool
	reverse  bool
	last     int
	first    int
}

func addSelectionFlags(cmd *cobra.Command, f *selectionFlags) {
	cmd.Flags().StringSliceVarP(&f.files, "file", "f", nil, "select the remote counterpart of a local file by content hash")
	cmd.Flags().StringVarP(&f.filter, "filter", "F", "", "select filenames matching the given regex")
	cmd.Flags().StringVar(&f.newer, "newer", "", "select files newer than the given duration (e.g. 30min, 2d, 1w)")
	cmd.Flags().StringVar(&f.older, "older", "", "select files older than the given duration (e.g. 30min, 2d, 1w)")
	cmd.Flags().BoolVarP(&f.sortSize, "sort-size", "S", false, "sort by file size, ascending")
	cmd.Flags().BoolVarP(&f.sortTime, "sort-time", "T", false, "sort by modification time, ascending")
	cmd.Flags().BoolVarP(&f.reverse, "reverse", "r", false, "reverse the current ordering")
	cmd.Flags().IntVarP(&f.last, "last", "n", -1, "keep only the last n entries of the current order")
	cmd.Flags().IntVar(&f.first, "first", -1, "keep only the first n entries of the current order")
}

// parseIndices converts positional arguments into signed catalog indices
func parseIndices(args []string) ([]int, error) {
	indices := make([]int, 0, len(args))
	for _, a := range args {
		idx, err := strconv.Atoi(a)
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// buildSelection applies the shared flags as one pipeline, in the fixed
// order selection, time window, sort, reverse, truncate
func (f *selectionFlags) buildSelection(
	ctx context.Context,
	cat *catalog.Catalog,
	host *config.Host,
	stater remote.Stater,
	indices []int,
	allIfNone bool,
	bailOnMissing bool,
	withStats bool,
) (selection.Selection, error) {
	sel := selection.New(cat,
		selection.Stater(stater),
		selection.Logger(logger),
	)

	sel, err := sel.ByIndices(indices)
	if err != nil {
		return sel, err
	}
	sel, err = sel.ByFilter(f.filter)
	if err != nil {
		return sel, err
	}
	sel, err = sel.ByHash(f.files, host.PrefixLength, bailOnMissing)
	if err != nil {
		return sel, err
	}
	sel = sel.WithAll(f.all)
	sel = sel.WithAllIfNone(allIfNone)
	sel, err = sel.SelectNewer(ctx, f.newer)
	if err != nil {
		return sel, err
	}
	sel, err = sel.SelectOlder(ctx, f.older)
	if err != nil {
		return sel, err
	}
	sel, err = sel.SortBySize(ctx, f.sortSize)
	if err != nil {
		return sel, err
	}
	sel, err = sel.SortByTime(ctx, f.sortTime)
	if err != nil {
		return sel, err
	}
	sel = sel.Revert(f.reverse)
	sel = sel.First(f.first)
	sel = sel.Last(f.last)
	return sel.WithStats(ctx, withStats)
}

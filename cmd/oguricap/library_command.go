package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Inspect catalogued assets",
	}
	libraryCmd.AddCommand(newLibraryListCommand(ctx))
	return libraryCmd
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	var providerFlag int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List library items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				var providerIDs []int64
				if providerFlag != 0 {
					providerIDs = append(providerIDs, providerFlag)
				}
				items, err := st.ListLibraryItems(cmd.Context(), providerIDs...)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Title,
						optionalInt(item.Season),
						chapterSpan(item.Chapter, item.ChapterTo),
						item.Category,
						strconv.FormatInt(item.ProviderID, 10),
						formatSize(item.Size),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Season", "Chapter", "Category", "Provider", "Size"},
					rows, 0, 5, 6,
				))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&providerFlag, "provider", 0, "Filter by provider id")
	return cmd
}

func optionalInt(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

func chapterSpan(from, to *int) string {
	if from == nil {
		return ""
	}
	if to != nil && *to != *from {
		return fmt.Sprintf("%d-%d", *from, *to)
	}
	return strconv.Itoa(*from)
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

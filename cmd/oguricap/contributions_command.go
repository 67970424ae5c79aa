package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

func newContributionsCommand(ctx *commandContext) *cobra.Command {
	contributionsCmd := &cobra.Command{
		Use:   "contributions",
		Short: "Inspect user-submitted assets",
	}
	contributionsCmd.AddCommand(newContributionsListCommand(ctx))
	return contributionsCmd
}

func newContributionsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contributions across all scopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				// The CLI is an operator surface, so it sees everything.
				contribs, err := st.ListVisibleContributions(cmd.Context(), store.Visibility{Owner: true})
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(contribs))
				for _, contrib := range contribs {
					rows = append(rows, []string{
						strconv.FormatInt(contrib.ID, 10),
						contrib.Title,
						contrib.Kind,
						chapterSpan(contrib.Chapter, contrib.ChapterTo),
						contrib.Approval,
						contrib.SubmitterID,
						contrib.OriginScopeID,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Kind", "Chapter", "Approval", "Submitter", "Scope"},
					rows, 0,
				))
				return nil
			})
		},
	}
}

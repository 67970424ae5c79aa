package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

func newRequestsCommand(ctx *commandContext) *cobra.Command {
	requestsCmd := &cobra.Command{
		Use:   "requests",
		Short: "Inspect tracked requests",
	}
	requestsCmd.AddCommand(newRequestsListCommand(ctx))
	requestsCmd.AddCommand(newRequestsShowCommand(ctx))
	return requestsCmd
}

func newRequestsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				var statuses []store.Status
				if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
					status := store.Status(trimmed)
					if !status.Valid() {
						return fmt.Errorf("unknown status %q", trimmed)
					}
					statuses = append(statuses, status)
				}

				requests, err := st.ListRequests(cmd.Context(), statuses...)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(requests))
				for _, req := range requests {
					rows = append(rows, []string{
						strconv.FormatInt(req.ID, 10),
						req.Title,
						string(req.Status),
						req.Priority,
						strconv.Itoa(req.VoteCount()),
						req.RequesterID,
						req.CreatedAt.Format(time.RFC3339),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Priority", "Votes", "Requester", "Created"},
					rows, 0, 4,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by lifecycle status")
	return cmd
}

func newRequestsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one request with its audit log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%q is not a request id", args[0])
			}

			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				req, err := st.GetRequest(cmd.Context(), id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Request #%d: %s\n", req.ID, req.Title)
				fmt.Fprintf(out, "Status: %s  Priority: %s  Votes: %d\n", req.Status, req.Priority, req.VoteCount())
				fmt.Fprintf(out, "Requester: %s", req.RequesterID)
				if req.OriginScopeID != "" {
					fmt.Fprintf(out, "  Scope: %s", req.OriginScopeID)
				}
				fmt.Fprintln(out)
				if req.Season != nil {
					fmt.Fprintf(out, "Season: %d\n", *req.Season)
				}
				if req.ChapterFrom != nil {
					if req.IsRange && req.ChapterTo != nil {
						fmt.Fprintf(out, "Chapters: %d-%d\n", *req.ChapterFrom, *req.ChapterTo)
					} else {
						fmt.Fprintf(out, "Chapter: %d\n", *req.ChapterFrom)
					}
				}
				if req.Pending != nil {
					fmt.Fprintf(out, "Pending confirmation: %s:%d (%s) since %s\n",
						req.Pending.Source, req.Pending.CandidateID, req.Pending.ContentType,
						req.Pending.CreatedAt.Format(time.RFC3339))
				}
				if req.Resolution != nil {
					fmt.Fprintf(out, "Resolution: %s:%d %q score %.1f\n",
						req.Resolution.Source, req.Resolution.CandidateID,
						req.Resolution.Title, req.Resolution.Score)
				}

				if len(req.Audit) > 0 {
					fmt.Fprintln(out, "\nAudit log:")
					for _, entry := range req.Audit {
						fmt.Fprintf(out, "  %s  %s", entry.At.Format(time.RFC3339), entry.Event)
						if len(entry.Payload) > 0 {
							fmt.Fprintf(out, "  %v", entry.Payload)
						}
						fmt.Fprintln(out)
					}
				}
				return nil
			})
		},
	}
}

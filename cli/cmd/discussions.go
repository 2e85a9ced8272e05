package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/roundtable/internal/domain"
)

var createUser string

var createCmd = &cobra.Command{
	Use:   "create <topic>",
	Short: "Open a new discussion",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		resp, err := newAPIClient(serverAddr).CreateDiscussion(ctx, domain.CreateDiscussionRequest{
			Topic:  strings.Join(args, " "),
			UserID: createUser,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", titleStyle.Render(resp.DiscussionID), resp.Topic)
		renderRoster(out, resp.Roster)
		fmt.Fprintf(out, "\nFollow it with: roundtable-cli watch %s\n", resp.DiscussionID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discussions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		discussions, err := newAPIClient(serverAddr).ListDiscussions(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(discussions) == 0 {
			fmt.Fprintln(out, dimStyle.Render("no discussions yet"))
			return nil
		}
		now := time.Now()
		for _, d := range discussions {
			renderDiscussionLine(out, d, now)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <discussion_id>",
	Short: "Print a discussion transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		detail, err := newAPIClient(serverAddr).GetDiscussion(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(detail.Discussion.Topic))
		renderRoster(out, detail.Participants)
		fmt.Fprintln(out)
		for _, m := range detail.Messages {
			renderMessage(out, m)
		}
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&createUser, "user", "u", "", "user id recorded on the discussion")
}

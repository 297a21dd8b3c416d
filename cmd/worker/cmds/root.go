package cmds

import (
	"context"
	"encoding/json"
	"os"

	"github.com/coraldao/vote-wallet/core"
	"github.com/coraldao/vote-wallet/worker/settler"
	"github.com/spf13/cobra"
)

type Cmd struct {
	Requests core.RequestStore
	Settler  *settler.Settler
}

func (c *Cmd) Run(ctx context.Context, args []string) error {
	root := &cobra.Command{
		Use:   "vote-wallet",
		Short: "vote-wallet",
	}

	root.AddCommand(c.exportRequestsCmd())
	root.AddCommand(c.exportRequestCmd())
	root.AddCommand(c.settleCmd())

	root.SetArgs(args)
	root.SetOut(os.Stdout)

	return root.ExecuteContext(ctx)
}

func (c *Cmd) exportRequestsCmd() *cobra.Command {
	var duplicatesOnly bool

	cmd := &cobra.Command{
		Use:   "export-requests",
		Short: "export username requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				requests []*core.UsernameRequest
				err      error
			)

			if duplicatesOnly {
				requests, err = c.Requests.FetchDuplicates(ctx, false)
			} else {
				requests, err = c.Requests.FetchAll(ctx, false)
			}

			if err != nil {
				return err
			}

			return jsonPrint(cmd, requests)
		},
	}

	cmd.Flags().BoolVar(&duplicatesOnly, "duplicates", false, "only contested usernames")
	return cmd
}

func (c *Cmd) exportRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-request",
		Short: "export a username request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			request, err := c.Requests.Find(ctx, args[0])
			if err != nil {
				return err
			}

			return jsonPrint(cmd, request)
		},
	}
}

func (c *Cmd) settleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle",
		Short: "settle contested usernames once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Settler.Settle(cmd.Context())
		},
	}
}

func jsonPrint(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cli

import (
	"github.com/spf13/cobra"

	"staking-sync/internal/app"
)

var (
	reconcileStrict bool
	reconcileTokens []string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation cycle and print the per-token report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Reconcile(cmd.Context(), app.ReconcileOptions{
			Strict: reconcileStrict,
			Tokens: reconcileTokens,
		})
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileStrict, "strict", false, "Exit non-zero if any token fails")
	reconcileCmd.Flags().StringSliceVar(&reconcileTokens, "token", nil, "Only reconcile these registry keys (repeatable)")
}

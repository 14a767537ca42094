package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/types"
)

var (
	syncFull bool
	syncTeam string
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Push queued writes and pull the latest state from the remote tracker",
	GroupID: "sync",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if cfg.LocalOnly {
			FatalErrorRespectJSON("this repo is configured local-only; sync has nothing to do")
		}
		if client == nil || eng == nil {
			FatalErrorRespectJSON("remote sync requires a configured credential")
		}
		if syncTeam != "" {
			cfg.TeamKey = syncTeam
		}

		if syncFull {
			// An empty last_full_sync makes a full sync due, so the
			// non-deferred SmartSync below performs one.
			if err := st.SetMeta(ctx, types.MetaLastFullSync, ""); err != nil {
				FatalErrorRespectJSON("sync failed: %v", err)
			}
		}

		push, err := eng.SmartSync(ctx, !syncFull)
		if err != nil {
			if errors.Is(err, errs.ErrTransient) {
				size, _ := st.OutboxSize(ctx)
				if jsonOutput {
					outputJSON(map[string]interface{}{"offline": true, "pending": size})
				} else {
					fmt.Printf("Offline: could not reach the remote tracker. %d change(s) remain queued.\n", size)
				}
				os.Exit(1)
				return
			}
			FatalErrorRespectJSON("sync failed: %v", err)
		}

		if jsonOutput {
			outputJSON(map[string]int{"pushed": push.Success, "push_failed": push.Failed})
			return
		}
		fmt.Printf("Synced. Pushed %d change(s)", push.Success)
		if push.Failed > 0 {
			fmt.Printf(" (%d failed, retrying later)", push.Failed)
		}
		fmt.Println(".")
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "force a full paginated resync instead of incremental")
	syncCmd.Flags().StringVar(&syncTeam, "team", "", "override the configured team key for this sync")
	rootCmd.AddCommand(syncCmd)
}

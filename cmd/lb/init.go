package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/config"
	"github.com/nikvdp/lb/internal/store"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize an lb repo in the current directory",
	GroupID: "setup",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Resolve(cmd.Flags())
		if err != nil {
			FatalErrorRespectJSON("resolving configuration: %v", err)
		}

		stateDir := config.StateDir(cfg.RepoRoot)
		if err := os.MkdirAll(stateDir, 0o755); err != nil {
			FatalErrorRespectJSON("creating %s: %v", stateDir, err)
		}

		s, err := store.Open(context.Background(), stateDir+"/cache.db")
		if err != nil {
			FatalErrorRespectJSON("creating cache: %v", err)
		}
		_ = s.Close()

		configPath := stateDir + "/config.jsonc"
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			contents := fmt.Sprintf(`{
  // repo_scope is one of "label", "project", "both".
  "repo_scope": "label",
  "repo_name": %q,
  "use_issue_types": false,
  "cache_ttl_seconds": 120,
  "local_only": false
}
`, cfg.RepoName)
			if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
				FatalErrorRespectJSON("writing %s: %v", configPath, err)
			}
		}

		if jsonOutput {
			outputJSON(map[string]string{"repo_root": cfg.RepoRoot, "state_dir": stateDir})
			return
		}
		fmt.Printf("Initialized lb repo in %s\n", stateDir)
		fmt.Println("Run `lb auth` to connect a remote tracker, or set local_only in config.jsonc to work offline.")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

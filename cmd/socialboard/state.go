package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/flux"
	sqliteRepo "github.com/sakif/socialboard/internal/repository/sqlite"
)

var (
	stateJSON  bool
	stateClear bool
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or clear the persisted client state",
	Long: `Print a summary of the client state saved by the last server run, the same
snapshot the server rehydrates on start. With --json the decoded state is
printed in full; with --clear the snapshot is deleted.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			fatal("opening database", err)
		}
		defer db.Close()

		if stateClear {
			if err := db.KV().Delete(ctx, flux.SnapshotKey); err != nil {
				fatal("clearing state", err)
			}
			fmt.Println("persisted state cleared")
			return
		}

		raw, err := db.KV().Load(ctx, flux.SnapshotKey)
		if errors.Is(err, apperror.ErrNotFound) {
			fmt.Println("no persisted state")
			return
		}
		if err != nil {
			fatal("loading state", err)
		}

		state, err := flux.DecodeSnapshot(raw)
		if err != nil {
			fatal("decoding state", err)
		}

		if stateJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(state); err != nil {
				fatal("encoding JSON", err)
			}
			return
		}

		user := "(signed out)"
		if state.CurrentUser != nil {
			user = fmt.Sprintf("%s <%s>", state.CurrentUser.DisplayName, state.CurrentUser.Email)
		}
		fmt.Printf("path:      %s (%s)\n", state.CurrentPath, state.CurrentComponent)
		fmt.Printf("user:      %s\n", user)
		fmt.Printf("posts:     %d\n", len(state.Posts))
		fmt.Printf("tasks:     %d\n", len(state.Tasks))
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().BoolVar(&stateJSON, "json", false, "Output the full state as JSON")
	stateCmd.Flags().BoolVar(&stateClear, "clear", false, "Delete the persisted state")
}

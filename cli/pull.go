package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dialog-db/dialog/dialog"
)

var pullUpstream string

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Merge another branch's state into this one",
	Long:  "Pulls --upstream (a differently-named branch sharing this archive) into --branch, three-way merging concurrent changes.",
	RunE:  runPull,
}

func init() {
	pullCmd.Flags().StringVar(&pullUpstream, "upstream", "main", "name of the branch to pull from")
}

func runPull(cmd *cobra.Command, args []string) error {
	blobs, cells, closeAll, err := openBackends()
	if err != nil {
		return err
	}
	defer closeAll()

	local := dialog.Open(branchName, blobs, cells)
	upstream := dialog.Open(pullUpstream, blobs, cells)

	changed, err := local.Pull(context.Background(), upstream)
	if err != nil {
		return err
	}
	if changed {
		fmt.Println("pulled new changes")
	} else {
		fmt.Println("already up to date")
	}
	return nil
}

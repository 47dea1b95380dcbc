package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var revisionCmd = &cobra.Command{
	Use:   "revision",
	Short: "Print the branch's current revision hash",
	RunE:  runRevision,
}

func runRevision(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	rev, err := store.Revision(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(rev.String())
	return nil
}

// Package cli implements dialogctl, the command-line surface spec.md
// §6 says does not belong in the core engine ("no CLI is part of the
// core; the surrounding repo supplies one"). It wires dialog.Artifacts
// against bbolt-backed archive and cell stores.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dialog-db/dialog/archive"
	"github.com/dialog-db/dialog/cell"
	"github.com/dialog-db/dialog/dialog"
)

const dialogctlVersion = "0.1.0"

var (
	archivePath string
	cellPath    string
	branchName  string
	version     bool
)

var rootCmd = &cobra.Command{
	Use:   "dialogctl",
	Short: "dialogctl inspects and mutates a dialog fact store",
	Long:  "dialogctl is a command-line client for the dialog content-addressed fact store: commit instruction streams, run selectors, and inspect branch revisions.",
	Run: func(cmd *cobra.Command, args []string) {
		if version {
			fmt.Printf("dialogctl version %s\n", dialogctlVersion)
			os.Exit(0)
		}
		cmd.Help()
	},
}

// Execute runs the dialogctl root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&archivePath, "archive", "dialog.archive.db", "path to the bbolt blob archive")
	rootCmd.PersistentFlags().StringVar(&cellPath, "cells", "dialog.cells.db", "path to the bbolt CAS cell store")
	rootCmd.PersistentFlags().StringVar(&branchName, "branch", "main", "branch name")
	rootCmd.Flags().BoolVar(&version, "version", false, "print dialogctl's version")

	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(revisionCmd)
	rootCmd.AddCommand(pullCmd)
}

// openBackends opens the bbolt-backed archive and cell stores at the
// configured paths. The returned close function must be called once
// the caller is done with them.
func openBackends() (*archive.Bolt, *cell.Bolt, func() error, error) {
	blobs, err := archive.OpenBolt(archivePath)
	if err != nil {
		return nil, nil, nil, err
	}
	cells, err := cell.OpenBolt(cellPath)
	if err != nil {
		_ = blobs.Close()
		return nil, nil, nil, err
	}

	closeAll := func() error {
		cellsErr := cells.Close()
		blobsErr := blobs.Close()
		if cellsErr != nil {
			return cellsErr
		}
		return blobsErr
	}
	return blobs, cells, closeAll, nil
}

// openStore opens the configured backends and attaches a
// dialog.Artifacts handle to branchName.
func openStore() (*dialog.Artifacts, func() error, error) {
	blobs, cells, closeAll, err := openBackends()
	if err != nil {
		return nil, nil, err
	}
	return dialog.Open(branchName, blobs, cells), closeAll, nil
}

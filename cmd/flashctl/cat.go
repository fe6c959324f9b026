package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/flashkit/store"
)

func init() {
	rootCmd.AddCommand(newCatCmd())
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <id>",
		Short: "Write a store's contents to stdout",
		Long: `The cat command copies every byte written to store <id> to stdout.

Example:
  flashctl cat 5 --image chip.img > log.bin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(args)
		},
	}
}

func runCat(args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withManager(true, func(m *store.Manager, t *target) error {
		s, err := m.OpenStore(id, 0)
		if err != nil {
			return fmt.Errorf("failed to open store %d: %w", id, err)
		}
		n, err := io.Copy(os.Stdout, s)
		if err != nil {
			return fmt.Errorf("failed to read store %d: %w", id, err)
		}
		printVerbose("\n%d bytes\n", n)
		return nil
	})
}

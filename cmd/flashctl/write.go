package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/flashkit/store"
)

func init() {
	rootCmd.AddCommand(newWriteCmd())
}

func newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <id> <size> [file]",
		Short: "Create a store and fill it from a file or stdin",
		Long: `The write command opens store <id>, creating it with <size> bytes reserved
when it does not exist, appends the contents of [file] (stdin when omitted or
"-") and closes the store, shrinking its reservation to the data written.

Sizes accept K and M suffixes.

Example:
  flashctl write 5 64K log.bin --image chip.img
  dmesg | flashctl write 6 1M`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cmd.InOrStdin(), args)
		},
	}
}

func runWrite(stdin io.Reader, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	size, err := parseSize(args[1])
	if err != nil {
		return err
	}

	src := stdin
	name := "stdin"
	if len(args) == 3 && args[2] != "-" {
		f, err := os.Open(args[2])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		src, name = f, args[2]
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	return withManager(false, func(m *store.Manager, t *target) error {
		s, err := m.OpenStore(id, size)
		if err != nil {
			return fmt.Errorf("failed to open store %d: %w", id, err)
		}
		printVerbose("Store %d at 0x%06X, %d bytes reserved\n", id, s.Start(), s.Reserved())

		n, err := s.Write(data)
		if err != nil {
			return fmt.Errorf("failed to write store %d: %w", id, err)
		}
		reserved, err := s.Close()
		if err != nil {
			return fmt.Errorf("failed to close store %d: %w", id, err)
		}

		if jsonOut {
			return printJSON(newStoreRow(s.Info()))
		}
		printInfo("Wrote %d bytes from %s to store %d (%s reserved)\n", n, name, id, formatBytes(uint64(reserved)))
		return nil
	})
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/flashkit/store"
)

func init() {
	rootCmd.AddCommand(newRmCmd())
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Erase stores and free their directory slots",
		Long: `The rm command erases each store's reserved blocks and clears its
directory slot. The erased range is not reused by later stores.

Example:
  flashctl rm 5 6 --image chip.img`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(args)
		},
	}
}

func runRm(args []string) error {
	ids := make([]uint32, len(args))
	for i, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	type removed struct {
		ID     uint32 `json:"id"`
		Erased uint32 `json:"erased"`
	}
	return withManager(false, func(m *store.Manager, t *target) error {
		var out []removed
		for _, id := range ids {
			n, err := m.DeleteStore(id)
			if err != nil {
				return fmt.Errorf("failed to delete store %d: %w", id, err)
			}
			out = append(out, removed{ID: id, Erased: n})
			if !jsonOut {
				printInfo("Deleted store %d (%s erased)\n", id, formatBytes(uint64(n)))
			}
		}
		if jsonOut {
			return printJSON(out)
		}
		return nil
	})
}

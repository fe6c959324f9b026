package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/flashkit/store"
)

func init() {
	rootCmd.AddCommand(newLsCmd())
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List stores in the chip directory",
		Long: `The ls command lists every store found in the directory, ordered by
start address.

Example:
  flashctl ls --image chip.img
  flashctl ls --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs()
		},
	}
}

// storeRow is the JSON form of one store.
type storeRow struct {
	ID       uint32 `json:"id"`
	Start    uint32 `json:"start"`
	End      uint32 `json:"end"`
	Used     uint32 `json:"used"`
	Reserved uint32 `json:"reserved"`
	State    string `json:"state"`
}

func newStoreRow(info store.Info) storeRow {
	return storeRow{
		ID:       info.ID,
		Start:    info.Start,
		End:      info.End,
		Used:     info.Used(),
		Reserved: info.Reserved,
		State:    info.State.String(),
	}
}

func runLs() error {
	return withManager(true, func(m *store.Manager, t *target) error {
		infos := m.Stores()
		rows := make([]storeRow, len(infos))
		for i, info := range infos {
			rows[i] = newStoreRow(info)
		}
		if jsonOut {
			return printJSON(rows)
		}
		if len(rows) == 0 {
			printInfo("No stores on %s\n", t.Source)
			return nil
		}

		cells := make([][]string, len(rows))
		for i, r := range rows {
			end := "-"
			if r.Used > 0 {
				end = fmt.Sprintf("0x%06X", r.End)
			}
			cells[i] = []string{
				fmt.Sprint(r.ID),
				fmt.Sprintf("0x%06X", r.Start),
				end,
				fmt.Sprint(r.Used),
				fmt.Sprint(r.Reserved),
				render(stateStyles[r.State], r.State),
			}
		}
		printInfo("%s", renderTable([]string{"ID", "START", "END", "USED", "RESERVED", "STATE"}, cells))
		return nil
	})
}

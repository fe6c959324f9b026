package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/store"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Report chip geometry and directory usage",
		Long: `The info command prints the chip geometry, the number of stores, space
reserved and written, the free tail and how often the directory block was
erased during this run.

Example:
  flashctl info --image chip.img
  flashctl info --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	}
}

// chipInfo is the JSON form of the info report.
type chipInfo struct {
	Source    string `json:"source"`
	Chip      string `json:"chip"`
	JEDECID   string `json:"jedec_id,omitempty"`
	ByteCount uint32 `json:"byte_count"`
	PageSize  uint32 `json:"page_size"`
	BlockSize uint32 `json:"block_size"`
	Slots     int    `json:"slots"`
	Stores    int    `json:"stores"`
	Reserved  uint64 `json:"reserved"`
	Used      uint64 `json:"used"`
	NextFree  uint64 `json:"next_free"`
	FreeTail  uint64 `json:"free_tail"`
}

func newChipInfo(t *target, g flash.Geometry, st store.Stats) chipInfo {
	info := chipInfo{
		Source:    t.Source,
		Chip:      cfg.Chip,
		ByteCount: g.ByteCount,
		PageSize:  g.PageSize,
		BlockSize: g.BlockSize,
		Slots:     st.Capacity,
		Stores:    st.Stores,
		Reserved:  st.Reserved,
		Used:      st.Used,
		NextFree:  st.NextFree,
		FreeTail:  st.FreeTail,
	}
	if t.ID != nil {
		info.JEDECID = t.ID.String()
	}
	return info
}

func runInfo() error {
	return withManager(true, func(m *store.Manager, t *target) error {
		info := newChipInfo(t, m.Geometry(), m.Stats())
		if jsonOut {
			return printJSON(info)
		}

		label := func(s string) string { return render(labelStyle, s) }
		printInfo("\n%s\n", render(titleStyle, "Chip Information:"))
		printInfo("  %s %s\n", label("Source:"), info.Source)
		printInfo("  %s %s\n", label("Chip:"), info.Chip)
		if info.JEDECID != "" {
			printInfo("  %s %s\n", label("JEDEC ID:"), info.JEDECID)
		}
		printInfo("  %s %s (%d bytes)\n", label("Size:"), formatBytes(uint64(info.ByteCount)), info.ByteCount)
		printInfo("  %s %d bytes\n", label("Page:"), info.PageSize)
		printInfo("  %s %d bytes\n", label("Block:"), info.BlockSize)

		printInfo("\n%s\n", render(titleStyle, "Directory:"))
		printInfo("  %s %d of %d slots\n", label("Stores:"), info.Stores, info.Slots)
		printInfo("  %s %s\n", label("Reserved:"), formatBytes(info.Reserved))
		printInfo("  %s %s\n", label("Used:"), formatBytes(info.Used))
		printInfo("  %s 0x%06X\n", label("Next free:"), info.NextFree)
		printInfo("  %s %s\n", label("Free tail:"), formatBytes(info.FreeTail))
		return nil
	})
}

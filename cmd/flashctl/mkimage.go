package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/flashkit/flash/image"
)

var mkimageForce bool

func init() {
	rootCmd.AddCommand(newMkimageCmd())
}

func newMkimageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkimage <path>",
		Short: "Create an erased chip image file",
		Long: `The mkimage command writes a chip image file with every byte erased (0xFF),
sized for the configured chip profile.

Example:
  flashctl mkimage chip.img --chip at45db321e
  flashctl mkimage custom.img --chip custom --config board.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMkimage(args)
		},
	}
	cmd.Flags().BoolVarP(&mkimageForce, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func runMkimage(args []string) error {
	path := args[0]
	g, err := cfg.ChipGeometry()
	if err != nil {
		return err
	}
	if !mkimageForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	printVerbose("Creating %s for %s\n", path, cfg.Chip)
	if err := image.Create(path, g); err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}

	if jsonOut {
		return printJSON(map[string]any{
			"path":       path,
			"chip":       cfg.Chip,
			"byte_count": g.ByteCount,
			"page_size":  g.PageSize,
			"block_size": g.BlockSize,
		})
	}
	printInfo("Created %s: %s, %d-byte pages, %d-byte blocks\n",
		path, formatBytes(uint64(g.ByteCount)), g.PageSize, g.BlockSize)
	return nil
}

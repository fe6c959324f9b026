package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/flashkit/internal/config"
	"github.com/joshuapare/flashkit/internal/logger"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	noColor bool
	cfgFile string

	// cfg is loaded before every command runs.
	cfg      *config.Config
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "flashctl",
	Short: "Manage append-only stores on SPI NOR flash",
	Long: `flashctl creates, fills, reads and deletes stores on Atmel AT25DF641A and
AT45DB321E serial flash chips, either over Linux spidev or on a chip image
file. A store is a block-aligned region listed in the directory held in the
chip's first erase block.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	pf.BoolVar(&jsonOut, "json", false, "Output in JSON format")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&cfgFile, "config", "", "Config file (default: flashctl.yaml in ., $HOME/.flashctl, /etc/flashctl)")
	pf.String("image", "", "Chip image file to operate on instead of SPI hardware")
	pf.String("chip", "", "Chip profile: "+strings.Join(config.ChipNames(), ", "))
	pf.String("spi", "", "spidev node, e.g. /dev/spidev0.0")
}

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"image": "image",
	"chip":  "chip",
	"spi":   "spi.device",
}

func loadConfig(cmd *cobra.Command, args []string) error {
	v := config.New(cfgFile)
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
			return err
		}
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	closeFn, err := logger.Init(logger.Options{
		Enabled: verbose || c.Log.Dir != "",
		Level:   level,
		JSON:    c.Log.JSON,
		LogDir:  c.Log.Dir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	cfg, closeLog = c, closeFn
	logger.Debug("config loaded", "file", v.ConfigFileUsed(), "chip", c.Chip, "image", c.Image)
	return nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// parseID parses a store id in decimal or 0x hex.
func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid store id %q", s)
	}
	return uint32(id), nil
}

// parseSize parses a byte count with an optional K or M suffix.
func parseSize(s string) (uint32, error) {
	mult := uint64(1)
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult, s = 1<<10, s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult, s = 1<<20, s[:len(s)-1]
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil || n*mult > 1<<32-1 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return uint32(n * mult), nil
}

// formatBytes renders a byte count the way info and ls print sizes.
func formatBytes(n uint64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

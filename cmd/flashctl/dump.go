package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/flashkit/store"
)

var dumpLength string

func init() {
	rootCmd.AddCommand(newDumpCmd())
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <addr>",
		Short: "Hex dump raw chip bytes",
		Long: `The dump command prints raw chip bytes starting at <addr> as hex with a
code page 437 text column, the character set of the serial consoles these
chips are usually debugged on.

Example:
  flashctl dump 0 --image chip.img          # directory slots
  flashctl dump 0x1000 -n 1K --image chip.img`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}
	cmd.Flags().StringVarP(&dumpLength, "length", "n", "256", "Bytes to dump (K and M suffixes accepted)")
	return cmd
}

func runDump(args []string) error {
	addr, err := parseSize(args[0])
	if err != nil {
		return fmt.Errorf("invalid address %q", args[0])
	}
	n, err := parseSize(dumpLength)
	if err != nil {
		return err
	}

	return withManager(true, func(m *store.Manager, t *target) error {
		g := m.Geometry()
		if addr >= g.ByteCount {
			return fmt.Errorf("address 0x%X beyond chip end 0x%X", addr, g.ByteCount)
		}
		n = min(n, g.ByteCount-addr)
		buf := make([]byte, n)
		read, err := t.Read(addr, buf)
		if err != nil {
			return fmt.Errorf("failed to read 0x%X: %w", addr, err)
		}
		if jsonOut {
			return printJSON(map[string]any{"addr": addr, "data": buf[:read]})
		}
		printInfo("%s", hexDump(addr, buf[:read]))
		return nil
	})
}

// hexDump formats 16 bytes per line: address, hex bytes and a text column.
func hexDump(addr uint32, data []byte) string {
	var b strings.Builder
	for off := 0; off < len(data); off += 16 {
		line := data[off:min(off+16, len(data))]
		fmt.Fprintf(&b, "%06X  ", addr+uint32(off))
		for i := range 16 {
			if i < len(line) {
				fmt.Fprintf(&b, "%02X ", line[i])
			} else {
				b.WriteString("   ")
			}
			if i == 7 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(" |")
		for _, c := range line {
			b.WriteRune(printable(c))
		}
		b.WriteString("|\n")
	}
	return b.String()
}

// printable maps a byte to its code page 437 glyph. Control codes, DEL and
// the erased value 0xFF print as '.'.
func printable(c byte) rune {
	if c < 0x20 || c == 0x7F || c == 0xFF {
		return '.'
	}
	return charmap.CodePage437.DecodeByte(c)
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vmos/asm"
)

var asmCmd = &cobra.Command{
	Use:   "asm source.s [object.o]",
	Short: "Assemble a program.",
	Long:  "`asm prog.s` writes prog.o next to the source unless an object file is named.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".o"
		if len(args) == 2 {
			dst = args[1]
		}
		if err := asm.AssembleFile(src, dst); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", src, dst)
		return nil
	},
}

var disasmCmd = &cobra.Command{
	Use:   "disasm object.o",
	Short: "Print the instructions of an object file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		words, err := asm.ReadObject(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		for addr, line := range asm.Disassemble(words) {
			fmt.Fprintf(cmd.OutOrStdout(), "%3d  %06o  %s\n", addr, words[addr], line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(asmCmd)
	rootCmd.AddCommand(disasmCmd)
}

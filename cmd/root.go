// Package cmd provides the command-line interface of vmos.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vmos",
	Short: "vmos runs programs on a simulated paged 16-bit machine.",
	Long: `vmos runs programs on a simulated paged 16-bit machine under a ` +
		`round robin multiprogramming scheduler, and assembles and ` +
		`disassembles its programs.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Exit handlers registered with atexit run either way.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// ABOUTME: Root CLI command with global flags and subcommand registration
// ABOUTME: Entry point for serve, process, mcp, transcripts, and version
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
	format  string
)

const banner = `
██╗███╗   ██╗███████╗██╗███╗   ██╗██╗████████╗███████╗ ██████╗████████╗██╗  ██╗
██║████╗  ██║██╔════╝██║████╗  ██║██║╚══██╔══╝██╔════╝██╔════╝╚══██╔══╝╚██╗██╔╝
██║██╔██╗ ██║█████╗  ██║██╔██╗ ██║██║   ██║   █████╗  ██║        ██║    ╚███╔╝
██║██║╚██╗██║██╔══╝  ██║██║╚██╗██║██║   ██║   ██╔══╝  ██║        ██║    ██╔██╗
██║██║ ╚████║██║     ██║██║ ╚████║██║   ██║   ███████╗╚██████╗   ██║   ██╔╝ ██╗
╚═╝╚═╝  ╚═══╝╚═╝     ╚═╝╚═╝  ╚═══╝╚═╝   ╚═╝   ╚══════╝ ╚═════╝   ╚═╝   ╚═╝  ╚═╝
`

// NewRootCmd creates the root command with all subcommands
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infinitectx",
		Short: "Process inputs of any size through a fixed-context model",
		Long: banner + `
Infinite Context splits oversized inputs (long documents, image sets,
video frames) into bounded chunks, runs every chunk through the model
concurrently, and reassembles the per-chunk responses in order.

Run as an HTTP streaming server, an MCP stdio server, or directly from
the terminal with the process command.`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&format, "format", "auto", "Output format: auto, json, text")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewProcessCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewTranscriptsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// ABOUTME: Transcripts command for inspecting stored chat history
// ABOUTME: Lists, shows, and deletes charm-backed transcripts
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/infinitecontext/infinitectx/internal/transcript"
)

// NewTranscriptsCmd creates the transcripts command group
func NewTranscriptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "Inspect stored chat transcripts",
		Long: `Inspect chat transcripts stored in charm KV.

Examples:
  infinitectx transcripts list
  infinitectx transcripts show 4f7c21a0-...
  infinitectx transcripts delete 4f7c21a0-...`,
	}

	cmd.AddCommand(newTranscriptsListCmd())
	cmd.AddCommand(newTranscriptsShowCmd())
	cmd.AddCommand(newTranscriptsDeleteCmd())

	return cmd
}

func openStore() (*transcript.Store, error) {
	_ = godotenv.Load()
	cfg := transcript.DefaultConfig()
	cfg.Debounce = 0 // CLI reads and deletes, no streaming cadence to absorb
	store, err := transcript.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening transcript store: %w", err)
	}
	return store, nil
}

func newTranscriptsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ids, err := store.List()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transcripts stored.")
				return nil
			}

			if format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(ids)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHAT\tMESSAGES\tUPDATED\tLAST MESSAGE")
			for _, id := range ids {
				t, err := store.Get(id)
				if err != nil {
					continue
				}
				last := ""
				if n := len(t.Messages); n > 0 {
					last = truncate(t.Messages[n-1].Text, 48)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", id, len(t.Messages), formatTime(t.UpdatedAt), last)
			}
			return w.Flush()
		},
	}
}

func newTranscriptsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Show one transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			t, err := store.Get(args[0])
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(t)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Chat %s (%s)\n\n", t.ChatID, formatTime(t.UpdatedAt))
			for _, m := range t.Messages {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n\n", m.Role, m.Text)
			}
			return nil
		},
	}
}

func newTranscriptsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Delete a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(args[0]); err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted transcript %s\n", args[0])
			}
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aretw0/webflow/internal/cli"
	"github.com/aretw0/webflow/internal/config"
	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/aretw0/webflow/pkg/repository"
	"github.com/spf13/cobra"
)

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Manage persisted conversations",
	Long:    `List, inspect and remove the conversations kept in a file or redis store.`,
}

var conversationLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		ids, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing conversations: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No conversations found.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFLOW\tSNAPSHOTS\tUPDATED")
		for _, id := range ids {
			conv, err := store.Load(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(w, "%s\t?\t?\t%v\n", id, err)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", conv.ID, conv.FlowID, len(conv.Snapshots), conv.UpdatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var conversationInspectCmd = &cobra.Command{
	Use:   "inspect <conversation-id>",
	Short: "Show a conversation and its snapshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		conv, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading conversation '%s': %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Conversation: %s\n", conv.ID)
		fmt.Fprintf(out, "Flow:         %s\n", conv.FlowID)
		fmt.Fprintf(out, "Created:      %s\n", conv.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(out, "Updated:      %s\n", conv.UpdatedAt.Format(time.RFC3339))
		fmt.Fprintf(out, "Scope:        %d bytes\n", len(conv.Scope))
		fmt.Fprintln(out, "Snapshots:")
		for _, s := range conv.Snapshots {
			key := repository.CompositeKey{ConversationID: conv.ID, SnapshotID: s.ID}
			fmt.Fprintf(out, "  - %s  %s  %d bytes\n", key, s.CreatedAt.Format(time.RFC3339), len(s.Data))
		}
		return nil
	},
}

var conversationRmCmd = &cobra.Command{
	Use:   "rm <conversation-id>...",
	Short: "Remove one or more conversations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		var errs []error
		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed conversation '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(conversationCmd)
	conversationCmd.AddCommand(conversationLsCmd)
	conversationCmd.AddCommand(conversationInspectCmd)
	conversationCmd.AddCommand(conversationRmCmd)

	conversationCmd.PersistentFlags().String("store", "", "Directory of a file store (overrides --config)")
}

// openStore opens the store of --store, or the persistent store of --config.
func openStore(cmd *cobra.Command) (ports.ConversationStore, func() error, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if dir, _ := cmd.Flags().GetString("store"); dir != "" {
		cfg.Store.Type = config.StoreFile
		cfg.Store.Path = dir
	}
	if cfg.Store.Type == config.StoreMemory {
		return nil, nil, fmt.Errorf("the memory store keeps no conversations between processes; use --store or a config with a file or redis store")
	}
	return cli.OpenStore(cfg, logging.NewNop())
}

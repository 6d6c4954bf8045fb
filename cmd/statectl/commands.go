package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/adspredia/adspredia-api/internal/domain/state"
	"github.com/adspredia/adspredia-api/internal/pkg/kvstore"
)

// opener connects to the backend holding the snapshots
type opener func(ctx context.Context) (kvstore.Store, error)

type cli struct {
	open   opener
	rawKey bool
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:          "statectl",
		Short:        "Inspect and edit device state snapshots",
		Long:         `Reads and writes device snapshots in the backend selected by STATE_BACKEND.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&c.rawKey, "raw-key", false, "treat the argument as a full slot key instead of a device id")

	root.AddCommand(c.showCmd(), c.exportCmd(), c.importCmd(), c.resetCmd())
	return root
}

func (c *cli) key(arg string) string {
	if c.rawKey {
		return arg
	}
	return state.DeviceKey(arg)
}

// withStore opens the backend for the duration of fn
func (c *cli) withStore(cmd *cobra.Command, fn func(ctx context.Context, slot kvstore.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	slot, err := c.open(ctx)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer slot.Close()
	return fn(ctx, slot)
}

func (c *cli) load(ctx context.Context, slot kvstore.Store, key string) (state.AppState, error) {
	data, err := slot.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return state.AppState{}, fmt.Errorf("no snapshot stored under %s", key)
	}
	if err != nil {
		return state.AppState{}, fmt.Errorf("read %s: %w", key, err)
	}
	return state.Decode(data)
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <device>",
		Short: "Print a summary of a device snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := c.key(args[0])
			return c.withStore(cmd, func(ctx context.Context, slot kvstore.Store) error {
				snap, err := c.load(ctx, slot, key)
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), key, snap)
				return nil
			})
		},
	}
}

func printSummary(w io.Writer, key string, snap state.AppState) {
	fmt.Fprintf(w, "key:          %s\n", key)
	if snap.User == nil {
		fmt.Fprintln(w, "user:         (logged out)")
	} else {
		fmt.Fprintf(w, "user:         %s <%s>\n", snap.User.Name, snap.User.Email)
		fmt.Fprintf(w, "completed:    %d tasks\n", snap.User.CompletedTasks)
	}

	sum := state.Summarize(snap)
	fmt.Fprintf(w, "balance:      %d\n", sum.Balance)
	fmt.Fprintf(w, "earned:       %d\n", sum.TotalEarnings)
	fmt.Fprintf(w, "spent:        %d\n", sum.TotalSpent)
	fmt.Fprintf(w, "transactions: %d (%d pending deposits, %d pending withdrawals)\n",
		len(snap.Transactions), sum.PendingDeposits, sum.PendingWithdrawals)
	fmt.Fprintf(w, "tasks:        %d\n", len(snap.Tasks))
	fmt.Fprintf(w, "ads:          %d\n", len(snap.AvailableAds))
}

func (c *cli) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <device>",
		Short: "Write a device snapshot as indented JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := c.key(args[0])
			return c.withStore(cmd, func(ctx context.Context, slot kvstore.Store) error {
				snap, err := c.load(ctx, slot, key)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return err
				}
				data = append(data, '\n')

				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %s to %s\n", key, output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "import <device>",
		Short: "Replace a device snapshot with the contents of a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			snap, err := state.Decode(raw)
			if err != nil {
				return err
			}
			data, err := state.Encode(snap)
			if err != nil {
				return err
			}

			key := c.key(args[0])
			return c.withStore(cmd, func(ctx context.Context, slot kvstore.Store) error {
				if err := slot.Put(ctx, key, data); err != nil {
					return fmt.Errorf("write %s: %w", key, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d transactions and %d tasks into %s\n",
					len(snap.Transactions), len(snap.Tasks), key)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "snapshot JSON file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <device>",
		Short: "Delete a device snapshot so the next open seeds it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := c.key(args[0])
			return c.withStore(cmd, func(ctx context.Context, slot kvstore.Store) error {
				if err := slot.Delete(ctx, key); err != nil {
					return fmt.Errorf("delete %s: %w", key, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", key)
				return nil
			})
		},
	}
}

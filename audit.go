/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newAuditCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List claims recorded in an audit journal",
		Long: `Lists every claim written to the journal given by --audit-db, grouped by
server run. Slot contents are never journaled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return errors.New("--audit-db is required")
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}

			j, err := openJournal(path)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.entries(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if len(entries) == 0 {
				fmt.Fprintln(out, "No claims recorded")
				return nil
			}

			cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
			green := color.New(color.FgGreen).SprintFunc()

			boot := ""
			for _, e := range entries {
				if e.Boot != boot {
					if boot != "" {
						fmt.Fprintln(out)
					}
					boot = e.Boot
					fmt.Fprintln(out, cyan("Run started "+boot))
				}

				fmt.Fprintf(out, "  %3d  %-4s %s  %s\n",
					e.Seq,
					slotLabel(e.Slot),
					green(e.ClaimedAt.Local().Format(time.DateTime)),
					e.Owner,
				)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&path, "audit-db", os.Getenv("SLOTPICK_AUDIT_DB"), "path to the journal database (env: SLOTPICK_AUDIT_DB)")

	return cmd
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/slotpick/games/slots"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

type clientFlags struct {
	server string
	token  string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", envOr("SLOTPICK_SERVER", defaultServer), "board URL, including any prefix (env: SLOTPICK_SERVER)")
	cmd.Flags().StringVar(&f.token, "token", os.Getenv("SLOTPICK_TOKEN"), "identity token from an earlier pick (env: SLOTPICK_TOKEN)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// renderBoard writes one line per slot.
func renderBoard(w io.Writer, st slots.Status) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for _, v := range st.Slots {
		lock := ""
		if v.Protected {
			lock = " (passcode)"
		}

		switch {
		case v.TakenByMe:
			fmt.Fprintf(w, "  %-4s %s %s\n", slotLabel(v.Index), green("yours:"), green(v.Name))
		case v.Taken:
			fmt.Fprintf(w, "  %-4s %s\n", slotLabel(v.Index), gray("taken"))
		default:
			fmt.Fprintf(w, "  %-4s %s%s\n", slotLabel(v.Index), yellow("open"), lock)
		}
	}
}

func newWatchCmd() *cobra.Command {
	var (
		flags    clientFlags
		interval time.Duration
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a board from the terminal",
		Long:  `Polls a running board and prints it every time it changes.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := slots.NewClient(flags.server, flags.token)
			poller := slots.NewPoller(client, interval)

			out := cmd.OutOrStdout()
			red := color.New(color.FgRed).SprintFunc()

			if once {
				if err := poller.Tick(cmd.Context()); err != nil {
					return err
				}
				st, _ := poller.Latest()
				renderBoard(out, st)
				return nil
			}

			var lastVersion uint64
			var printed bool
			poller.OnStatus = func(st slots.Status) {
				if printed && st.Version == lastVersion {
					return
				}
				printed, lastVersion = true, st.Version

				fmt.Fprintf(out, "%s board version %d\n", time.Now().Format(time.TimeOnly), st.Version)
				renderBoard(out, st)
			}
			poller.OnError = func(err error) {
				fmt.Fprintf(out, "%s %s\n", time.Now().Format(time.TimeOnly), red("poll failed, retrying: "+err.Error()))
			}

			err := poller.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", slots.DefaultPollInterval, "time between polls")
	cmd.Flags().BoolVar(&once, "once", false, "print the board once and exit")

	return cmd
}

func newPickCmd() *cobra.Command {
	var (
		flags  clientFlags
		secret string
	)

	cmd := &cobra.Command{
		Use:   "pick <number>",
		Short: "Claim a slot on a board",
		Long: `Claims the slot with the given number (as shown on the board, starting at 1).
The identity token is printed so later commands can act as the same participant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
			if err != nil || n < 1 {
				return fmt.Errorf("invalid slot number %q", args[0])
			}

			client := slots.NewClient(flags.server, flags.token)
			poller := slots.NewPoller(client, 0)

			out := cmd.OutOrStdout()
			green := color.New(color.FgGreen, color.Bold).SprintFunc()
			red := color.New(color.FgRed, color.Bold).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()

			resp, err := poller.Pick(cmd.Context(), n-1, secret)

			if tok := client.Token(); tok != "" && tok != flags.token {
				fmt.Fprintf(out, "token: %s\n", tok)
			}

			var ce *slots.ConflictError
			switch {
			case err == nil:
				fmt.Fprintf(out, "%s %s\n", green("You picked "+slotLabel(resp.Index)+":"), green(resp.Name))
			case errors.As(err, &ce):
				fmt.Fprintln(out, yellow("You already picked "+slotLabel(ce.Existing)+"."))
			case errors.Is(err, slots.ErrSlotTaken):
				fmt.Fprintln(out, red("Rejected: that number belongs to someone else."))
			case errors.Is(err, slots.ErrWrongSecret):
				fmt.Fprintln(out, yellow("Wrong passcode, try again with --secret."))
			default:
				return err
			}

			if st, ok := poller.Latest(); ok {
				fmt.Fprintln(out)
				renderBoard(out, st)
			}

			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&secret, "secret", "", "passcode for a protected slot")

	return cmd
}

/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emsdesk/apiserver/config"
	"github.com/emsdesk/apiserver/internal/mq"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect published domain events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print events from a channel until interrupted",
	Long: `Subscribes to an event channel on the configured broker and prints
each event body. Usage:

	emsdesk events watch --channel payroll.paid
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, _ := cmd.Flags().GetString("channel")
		if channel == "" {
			return errors.New("--channel is required")
		}

		cfg := config.LoadConfig()
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.FromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer broker.Close()

		out := cmd.OutOrStdout()
		err = broker.Subscribe(ctx, channel, func(ctx context.Context, msg mq.Message) error {
			_, err := fmt.Fprintf(out, "%s\t%s\n", msg.ID, msg.Data)
			return err
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)

	eventsWatchCmd.Flags().String("channel", "", "Event channel to watch, e.g. users.fired")
}

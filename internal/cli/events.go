package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"gastos/internal/amqp"
	applog "gastos/internal/log"
)

// NewEventsCommand tails the expense events published by the sync engine.
func NewEventsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print expense events from the AMQP queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is not set")
			}

			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return err
			}
			defer client.Close()

			parent, stop := context.WithCancel(cmd.Context())
			ctx, done := GracefulShutdown(parent, logger.WithComponent(applog.ComponentAMQP), shutdownTimeout, nil)
			err = client.ConsumeEvents(ctx, eventPrinter(cmd.OutOrStdout(), opts.Format))
			stop()
			WaitForShutdown(ctx, done)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func eventPrinter(w io.Writer, format string) func(amqp.ExpenseEvent) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		return func(ev amqp.ExpenseEvent) error { return enc.Encode(ev) }
	}
	return func(ev amqp.ExpenseEvent) error {
		line := fmt.Sprintf("%s  %-16s", ev.Timestamp.Local().Format("15:04:05"), ev.Type)
		switch {
		case ev.Type == amqp.EventPulled:
			line += fmt.Sprintf("  %s  %d rows", ev.OwnerEmail, ev.Count)
		case ev.SharedWithEmail != "":
			line += fmt.Sprintf("  %s  %s → %s", shortID(ev.ExpenseID), ev.OwnerEmail, ev.SharedWithEmail)
		default:
			line += fmt.Sprintf("  %s  %s", shortID(ev.ExpenseID), ev.OwnerEmail)
		}
		_, err := fmt.Fprintln(w, line)
		return err
	}
}

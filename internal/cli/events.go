package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spec-kit/service-desk/internal/events"
)

func eventsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect ticket events published to RabbitMQ",
	}
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream ticket events from the events queue until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rt.config()
			if err != nil {
				return err
			}
			if cfg.Events.AMQPURL == "" {
				return errors.New("RABBITMQ_URL is not set; event publishing is disabled")
			}
			logger, err := rt.log()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Listening on %s (Ctrl+C to stop)\n", cfg.Events.Queue)
			consumer := events.NewAMQPConsumer(cfg.Events.AMQPURL, cfg.Events.Queue, logger)
			err = consumer.Run(ctx, func(_ context.Context, event events.Event) error {
				_, err := fmt.Fprintln(out, formatEvent(event))
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.AddCommand(tailCmd)
	return cmd
}

func formatEvent(event events.Event) string {
	actor := event.Actor.Type
	if event.Actor.Name != "" {
		actor += ":" + event.Actor.Name
	}
	line := fmt.Sprintf("%s  %s  #%s  %s",
		event.Timestamp.Local().Format("2006-01-02 15:04:05"),
		color.New(color.FgCyan).Sprintf("%-21s", event.Type),
		event.ShortID,
		actor)
	if event.Payload != nil {
		if payload, err := json.Marshal(event.Payload); err == nil {
			line += "  " + string(payload)
		}
	}
	return line
}

/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pranganb/vtube/config"
	"github.com/pranganb/vtube/internal/logging"
	"github.com/pranganb/vtube/internal/mq"
	"github.com/pranganb/vtube/types"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect account events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Subscribe to the account events channel and log every event",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger := logging.New(cfg.LogLevel, cfg.LogFormat)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("init message queue: %w", err)
		}
		defer func() { _ = queue.Close() }()

		logger.Info("tailing account events", "channel", cfg.MQ.Channel, "backend", cfg.MQ.Backend)
		err = queue.Subscribe(ctx, cfg.MQ.Channel, logEvent(logger))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}

// logEvent acks every message; undecodable payloads are logged and dropped.
func logEvent(logger *slog.Logger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		var event types.AccountEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.WarnContext(ctx, "undecodable account event", "message_id", msg.ID, "error", err)
			return nil
		}
		logger.InfoContext(ctx, "account event",
			"message_id", msg.ID,
			"type", event.Type,
			"user_id", event.UserID,
			"username", event.Username,
			"occurred_at", event.OccurredAt,
		)
		return nil
	}
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/frahmantamala/teamspace/internal/core/events"
	"github.com/frahmantamala/teamspace/internal/fanout"
	"github.com/frahmantamala/teamspace/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	fanoutOrg  string
	fanoutType string
	fanoutData string
)

var fanoutCmd = &cobra.Command{
	Use:   "fanout",
	Short: "Inspect the real-time fanout transport",
}

var fanoutSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Deliver one event through the configured transport",
	Long:  `Build the transport from config and deliver a single event synchronously. Useful to check endpoint reachability.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		lg := logger.LoggerWrapper()

		tr, err := fanout.NewTransport(cfg.Fanout, lg)
		if err != nil {
			return err
		}
		if tr == nil {
			return errors.New("fanout.driver is not configured")
		}
		defer tr.Close()

		data := map[string]interface{}{}
		if fanoutData != "" {
			if err := json.Unmarshal([]byte(fanoutData), &data); err != nil {
				return fmt.Errorf("--data must be a JSON object: %w", err)
			}
		}

		event := events.NewWorkspaceEvent(fanoutType, fanoutOrg, 0, data)
		payload, err := fanout.Encode(fanoutOrg, event)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Fanout.Timeout)
		defer cancel()
		if err := tr.Deliver(ctx, fanoutOrg, payload); err != nil {
			return fmt.Errorf("delivery failed: %w", err)
		}

		lg.Info("event delivered", "driver", cfg.Fanout.Driver, "organization", fanoutOrg, "type", fanoutType, "id", event.EventID())
		return nil
	},
}

func init() {
	fanoutSendCmd.Flags().StringVar(&fanoutOrg, "org", "", "organization slug")
	fanoutSendCmd.Flags().StringVar(&fanoutType, "type", "ping", "event type")
	fanoutSendCmd.Flags().StringVar(&fanoutData, "data", "", "event data as a JSON object")
	_ = fanoutSendCmd.MarkFlagRequired("org")

	fanoutCmd.AddCommand(fanoutSendCmd)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"analogfinder/internal/modules/climate/types"
	"analogfinder/internal/mqtt"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print dataset summaries published on MQTT_TOPIC",
	Long: `Subscribe to the dataset summary topic and print every summary the server
publishes. The retained summary prints right away; the command runs until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if !cfg.MQTTEnabled() {
		return errors.New("watch needs MQTT_BROKER to be set")
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sub := mqtt.NewSubscriber(cfg, logger, func(summary types.DatasetSummary) error {
		fmt.Fprintf(out, "--- %s\n", time.Now().UTC().Format(time.RFC3339))
		return printCoverage(out, summary)
	})

	connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
	err := sub.Connect(connectCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer sub.Disconnect()

	logger.Info("watching dataset summaries", "broker", cfg.MQTTBroker, "topic", cfg.MQTTTopic)
	<-ctx.Done()
	return nil
}

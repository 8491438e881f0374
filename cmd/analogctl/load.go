package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"analogfinder/internal/modules/climate/service"
	"analogfinder/internal/mqtt"
)

const mqttConnectTimeout = 5 * time.Second

var loadPublish bool

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the index files and print their coverage",
	Long: `Load every index source (DATA_DIR, or the upstream URLs when
DATA_MODE=remote), merge them by month and print per-index coverage.
With --publish the summary is also sent to the MQTT broker as the retained
dataset summary.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().BoolVar(&loadPublish, "publish", false, "publish the dataset summary to MQTT_BROKER")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var opts []service.Option
	if loadPublish {
		if !cfg.MQTTEnabled() {
			return errors.New("--publish needs MQTT_BROKER to be set")
		}
		publisher := mqtt.NewPublisher(cfg, logger)
		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err := publisher.Connect(connectCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		defer publisher.Disconnect()
		opts = append(opts, service.WithPublisher(publisher))
	}

	_, summary, closeDB, err := openDataset(ctx, opts...)
	if err != nil {
		return err
	}
	defer closeDB()

	return printCoverage(cmd.OutOrStdout(), summary)
}

/*
 * Copyright 2026 EZVIZ Bridge Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// ezviz-bridge exposes EZVIZ Cloud China cameras to local automation:
// it polls privacy state, applies optimistic toggles and serves a small
// HTTP/WebSocket API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/bridge"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/config"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/ezviz"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "ezviz-bridge",
		Short:         "Bridge EZVIZ Cloud China cameras to local automation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/ezviz-bridge/config.json", "path to config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newDevicesCmd(&configPath))
	root.AddCommand(newPrivacyCmd(&configPath))

	return root
}

// loadSetup loads and validates the configuration and builds the logger.
func loadSetup(configPath string) (*bridge.Config, logger.Logger, error) {
	var cfg bridge.Config

	if err := config.LoadAndValidate(configPath, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &cfg, log, nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge service",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := loadSetup(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b := bridge.New(ctx, cfg, log)

			if err := b.Start(ctx); err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				log.Info().Msg("Shutdown signal received")
			case err := <-b.Err():
				log.Error().Err(err).Msg("Fatal background error")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			return b.Stop(shutdownCtx)
		},
	}
}

func newDevicesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List account devices and their privacy state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadSetup(*configPath)
			if err != nil {
				return err
			}

			client := newClient(cfg, log)
			ctx := cmd.Context()

			devices, err := client.ListDevices(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERIAL\tNAME\tPRIVACY")

			for _, dev := range devices {
				privacy := "off"
				if client.GetPrivacyStatus(ctx, dev.Serial) {
					privacy = "on"
				}

				fmt.Fprintf(w, "%s\t%s\t%s\n", dev.Serial, dev.Name, privacy)
			}

			return w.Flush()
		},
	}
}

func newPrivacyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "privacy <serial> <on|off>",
		Short: "Toggle privacy mode on a device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, mode := args[0], args[1]

			if mode != "on" && mode != "off" {
				return fmt.Errorf("mode must be on or off, got %q", mode)
			}

			cfg, log, err := loadSetup(*configPath)
			if err != nil {
				return err
			}

			client := newClient(cfg, log)

			if !client.SetPrivacy(cmd.Context(), serial, mode == "on") {
				return fmt.Errorf("failed to set privacy mode on %s", serial)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "privacy %s: %s\n", mode, serial)

			return nil
		},
	}
}

func newClient(cfg *bridge.Config, log logger.Logger) *ezviz.Client {
	return ezviz.NewClient(&ezviz.ClientConfig{
		BaseURL:   cfg.BaseURL,
		AppKey:    cfg.AppKey,
		AppSecret: cfg.AppSecret,
	}, nil, log)
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/roomlink/internal/appconfig"
	"pkt.systems/roomlink/schema"
)

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	var host string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run roomlink diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			configPath := cfgPath
			if strings.TrimSpace(configPath) == "" {
				path, err := appconfig.DefaultConfigPath()
				if err != nil {
					return err
				}
				configPath = path
			}
			logger.Info("doctor config ok", "config", configPath)
			logger.Info("doctor console endpoint", "port", cfg.Console.Port, "path", cfg.Console.Path)

			provider := newProvider(cfg, logger)
			if provider.IsSupported(cmd.Context()) {
				logger.Info("doctor scan helper ok", "binary", cfg.Capability.Binary)
			} else {
				logger.Warn("doctor scan helper missing", "binary", cfg.Capability.Binary)
			}

			if host = strings.TrimSpace(host); host != "" {
				if !schema.ValidateAddress(host) {
					logger.Warn("doctor host invalid", "host", host)
					return fmt.Errorf("invalid console address %q", host)
				}
				logger.Info("doctor host ok", "host", host)
			}

			logger.Info("doctor complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&host, "host", "", "console address to validate")
	return cmd
}

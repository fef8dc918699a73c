package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/roomlink/internal/appconfig"
	"pkt.systems/roomlink/schema"
)

// scan runs the capture helper directly, without a console. Useful for
// verifying the helper installation and watching its event stream.
func newScanCmd() *cobra.Command {
	var cfgPath string
	var token string
	var uploadHost string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a local capture without an operator console",
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("a session token is required; pass --token")
			}
			uploadHost = strings.TrimSpace(uploadHost)
			if uploadHost != "" && !schema.ValidateAddress(uploadHost) {
				return errors.New("invalid upload host; expected a dotted-quad IPv4 address")
			}

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			logger := pslog.Ctx(cmd.Context())

			provider := newProvider(cfg, logger)
			if !provider.IsSupported(cmd.Context()) {
				return schema.ErrCapabilityUnavailable
			}
			if uploadHost != "" {
				provider.SetUploadTarget(uploadHost)
			}

			dispose := provider.Subscribe(func(event schema.CaptureEvent) {
				logger.Info("capture event", "event", event.Name, "payload_bytes", len(event.Payload))
			})
			defer dispose()

			if err := provider.StartScan(cmd.Context(), token); err != nil {
				return err
			}
			logger.Info("scan running, interrupt to stop")
			<-cmd.Context().Done()

			if err := provider.StopScan(context.Background()); err != nil && !errors.Is(err, schema.ErrNoScan) {
				return err
			}
			logger.Info("scan stopped")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&token, "token", "", "session token passed to the helper")
	cmd.Flags().StringVar(&uploadHost, "upload-host", "", "console host for chunk upload")
	return cmd
}

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/roomlink/internal/appconfig"
	"pkt.systems/roomlink/internal/capability"
	"pkt.systems/roomlink/internal/channel"
	"pkt.systems/roomlink/internal/logx"
	"pkt.systems/roomlink/internal/pairing"
	"pkt.systems/roomlink/internal/qrinput"
	"pkt.systems/roomlink/internal/session"
	"pkt.systems/roomlink/schema"
)

func newPairCmd() *cobra.Command {
	var cfgPath string
	var host string
	var token string
	var qrPayload string
	var noReconnect bool
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Pair with an operator console and run the capture session",
		RunE: func(cmd *cobra.Command, args []string) error {
			host = strings.TrimSpace(host)
			token = strings.TrimSpace(token)
			if host == "" && token == "" && qrPayload == "" {
				return errPairInputs
			}

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if noReconnect {
				cfg.Channel.DisableReconnect = true
			}

			if qrPayload != "" {
				scan, err := qrinput.Parse(qrPayload)
				if err != nil {
					return err
				}
				if host == "" {
					host = scan.Host
				}
				if token == "" {
					token = scan.Token
				}
			}

			logger := logx.WithHost(cmd.Context(), host)
			ctx := logx.ContextWithHostLogger(cmd.Context(), logger, host)

			ch := newChannel(cfg, logger)
			provider := newProvider(cfg, logger)

			outcome := pairing.New(ch, provider, logger).Pair(ctx, host, token)
			switch outcome.Result {
			case pairing.ResultInvalid:
				return fmt.Errorf("invalid %s", outcome.Field)
			case pairing.ResultConnectFailed:
				return fmt.Errorf("connect to %s: %w", host, outcome.Reason)
			}
			logger.Info("paired", "host", host)

			controller := session.New(ch, provider, logger)
			dispose := controller.Subscribe(logSink(logger))
			defer dispose()
			if err := controller.Start(ctx, token); err != nil {
				controller.Close()
				ch.Disconnect()
				return err
			}
			defer controller.Close()
			defer ch.Disconnect()

			<-ctx.Done()
			logger.Info("session shutting down")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&host, "host", "", "console IPv4 address")
	cmd.Flags().StringVar(&token, "token", "", "pairing token")
	cmd.Flags().StringVar(&qrPayload, "qr", "", "pairing payload from a QR scan")
	cmd.Flags().BoolVar(&noReconnect, "no-reconnect", false, "treat transport loss as fatal")
	return cmd
}

func newChannel(cfg appconfig.Config, logger pslog.Logger) *channel.Channel {
	dialer := channel.NewWSDialer(channel.WSConfig{
		HandshakeTimeout: time.Duration(cfg.Channel.HandshakeTimeoutSeconds) * time.Second,
		PingInterval:     time.Duration(cfg.Channel.PingIntervalSeconds) * time.Second,
	})
	return channel.New(channel.Config{
		Dialer:           dialer,
		Port:             cfg.Console.Port,
		Path:             cfg.Console.Path,
		BaseDelay:        time.Duration(cfg.Channel.ReconnectBaseSeconds) * time.Second,
		MaxDelay:         time.Duration(cfg.Channel.ReconnectMaxSeconds) * time.Second,
		DisableReconnect: cfg.Channel.DisableReconnect,
		Logger:           logger,
	})
}

func newProvider(cfg appconfig.Config, logger pslog.Logger) *capability.ProcessProvider {
	return capability.NewProcessProvider(capability.ProcessConfig{
		BinaryPath:  cfg.Capability.Binary,
		ExtraArgs:   cfg.Capability.Args,
		UploadPort:  cfg.Capability.UploadPort,
		StopTimeout: time.Duration(cfg.Capability.StopTimeoutSeconds) * time.Second,
		Logger:      logger,
	})
}

func logSink(logger pslog.Logger) schema.Handler {
	return func(event schema.Event) {
		switch event.Kind {
		case schema.EventState:
			log := logx.WithState(logger, event.State)
			if event.Reason != "" {
				log = log.With("reason", event.Reason)
			}
			log.Info("channel state")
		case schema.EventMessage:
			logMessage(logger, event.Message)
		case schema.EventCapture:
			if event.Capture == nil {
				return
			}
			logx.WithCapture(logger, *event.Capture).Info("capture event")
		}
	}
}

func logMessage(logger pslog.Logger, msg schema.Message) {
	if msg == nil {
		return
	}
	log := logger.With("type", string(msg.MessageType()))
	switch m := msg.(type) {
	case schema.Instruction:
		log.Info("console instruction", "text", m.Text)
	case schema.Status:
		log.Info("console status", "text", m.Text)
	case schema.RoomUpdate:
		log.Debug("room update", "bytes", len(m.Payload))
	case schema.Control:
		log.Debug("control message", "action", string(m.Action))
	default:
		log.Debug("console message")
	}
}

var errPairInputs = errors.New("host and token required; pass --host/--token or --qr")

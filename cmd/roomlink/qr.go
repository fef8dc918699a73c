package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"pkt.systems/roomlink/internal/qrinput"
)

func newQRCmd() *cobra.Command {
	var host string
	var token string
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Render a pairing QR code for manual testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			host = strings.TrimSpace(host)
			token = strings.TrimSpace(token)
			if host == "" && token == "" {
				return errors.New("nothing to encode; pass --host and/or --token")
			}
			payload := qrinput.Payload(host, token)
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "payload: %s\n", payload)
			qrterminal.GenerateHalfBlock(payload, qrterminal.L, w)
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "console IPv4 address")
	cmd.Flags().StringVar(&token, "token", "", "pairing token")
	return cmd
}

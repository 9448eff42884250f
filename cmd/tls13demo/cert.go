package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tls13 "github.com/paymentlogs/tls13"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Extract the verification key from a DER-encoded certificate",
	RunE:  runCert,
}

func init() {
	certCmd.Flags().String("file", "", "path to a DER-encoded X.509 certificate")
	if err := viper.BindPFlag("cert.file", certCmd.Flags().Lookup("file")); err != nil {
		panic(err)
	}
}

func runCert(cmd *cobra.Command, args []string) error {
	loadRootConfig()
	path := viper.GetString("cert.file")
	if path == "" {
		return fmt.Errorf("missing required certificate path (--file)")
	}
	der, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	scheme, key, err := tls13.VerificationKeyFromCert(der)
	if err != nil {
		return err
	}
	slog.Info("parsed certificate",
		slog.Int("scheme", int(scheme)),
		slog.Int("key_len", len(key)),
		slog.String("key", hex.EncodeToString(key)),
	)
	return nil
}

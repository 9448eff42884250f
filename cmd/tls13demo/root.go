package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"
)

// Ambient CLI stack grounded on kgiusti-go-fdo-server/cmd/root.go:
// a cobra.Command tree, persistent flags bound through viper, and
// log/slog with hermannm.dev/devlog as the handler, configured once in
// init().

var (
	debug    bool
	logLevel slog.LevelVar
)

var rootCmd = &cobra.Command{
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Use:   "tls13demo",
	Short: "Exercises the TLS 1.3 handshake core end to end",
	Long: `tls13demo drives the client and server handshake state machines
against each other in-process, and can inspect a DER certificate with
the strict-subset X.509 parser.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stdout, &devlog.Options{
		Level: &logLevel,
	})))

	rootCmd.PersistentFlags().Bool("debug", false, "print per-message handshake detail")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(handshakeCmd, certCmd)
}

func loadRootConfig() {
	debug = viper.GetBool("debug")
	if debug {
		logLevel.Set(slog.LevelDebug)
	}
}

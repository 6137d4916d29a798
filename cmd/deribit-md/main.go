// deribit-md streams market data from Deribit and fetches historical
// candles, backed by the low-latency client pipeline in this module.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "deribit-md",
		Short: "Deribit market data client",
		Long: `deribit-md connects to the Deribit JSON-RPC WebSocket API.

It can stream live notifications from any public or private channel and
download historical OHLCV candles into a sqlite database or CSV file.

Credentials are read from DERIBIT_CLIENT_ID and DERIBIT_CLIENT_SECRET;
public channels work without them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		streamCmd(),
		historyCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/QuantDreamGit/HFT-Deribit/client"
	"github.com/QuantDreamGit/HFT-Deribit/internal/history"
)

func historyCmd() *cobra.Command {
	var (
		testnet    bool
		instrument string
		resolution string
		count      int
		dbPath     string
		csvPath    string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Download historical OHLCV candles",
		Long: `Download historical OHLCV candles for an instrument.

Candles are fetched newest-first in chunks of up to 1000 and written to
a sqlite database, a CSV file, or stdout as CSV when neither is given.
Chart data is public; no credentials are required.

Examples:
  deribit-md history --instrument BTC-PERPETUAL --count 5000
  deribit-md history --instrument ETH-PERPETUAL --resolution 60 --db candles.db
  deribit-md history --instrument BTC-PERPETUAL --resolution 1D --csv btc_daily.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(testnet, instrument, resolution, count, dbPath, csvPath, verbose)
		},
	}

	cmd.Flags().BoolVar(&testnet, "testnet", false, "Connect to test.deribit.com")
	cmd.Flags().StringVarP(&instrument, "instrument", "i", "BTC-PERPETUAL", "Instrument name")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "1", "Candle resolution: 1, 5, 15, 60 or 1D")
	cmd.Flags().IntVarP(&count, "count", "n", 1000, "Number of candles to fetch")
	cmd.Flags().StringVar(&dbPath, "db", "", "Write candles to this sqlite database")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write candles to this CSV file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runHistory(testnet bool, instrument, resolution string, count int, dbPath, csvPath string, verbose bool) error {
	log := newLogger(verbose)

	if _, err := history.ResolutionToMs(resolution); err != nil {
		return err
	}

	creds, _ := client.CredentialsFromEnv() // chart data is public
	cfg := client.DefaultConfig(creds)
	if testnet {
		cfg = client.TestnetConfig(creds)
	}
	cfg.Logger = log

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := client.New(cfg)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	candles, err := history.Fetch(c, log, instrument, resolution, count)
	if err != nil {
		return err
	}
	log.Info("fetched candles", "instrument", instrument, "resolution", resolution, "count", len(candles))

	if dbPath != "" {
		store, err := history.OpenStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(ctx, instrument, resolution, candles); err != nil {
			return err
		}
		fmt.Printf("saved %d candles to %s\n", len(candles), dbPath)
	}

	if csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := history.WriteCSV(f, candles); err != nil {
			return err
		}
		fmt.Printf("wrote %d candles to %s\n", len(candles), csvPath)
	}

	if dbPath == "" && csvPath == "" {
		return history.WriteCSV(os.Stdout, candles)
	}
	return nil
}

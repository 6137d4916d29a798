package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/QuantDreamGit/HFT-Deribit/client"
	"github.com/QuantDreamGit/HFT-Deribit/internal/dispatch"
	"github.com/QuantDreamGit/HFT-Deribit/internal/metrics"
)

func streamCmd() *cobra.Command {
	var (
		testnet     bool
		channels    []string
		duration    time.Duration
		metricsAddr string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream live notifications from one or more channels",
		Long: `Stream live notifications from one or more channels.

Each notification is printed as "<channel> <payload>" on stdout.
Private channels require credentials in the environment.

Examples:
  deribit-md stream
  deribit-md stream --channel deribit_price_index.btc_usd --channel trades.BTC-PERPETUAL.raw
  deribit-md stream --testnet --duration 30s --metrics-addr :9100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(testnet, channels, duration, metricsAddr, verbose)
		},
	}

	cmd.Flags().BoolVar(&testnet, "testnet", false, "Connect to test.deribit.com")
	cmd.Flags().StringArrayVarP(&channels, "channel", "c", []string{"deribit_price_index.btc_usd"}, "Channel to subscribe to (repeatable)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop after this long (0 = run until interrupted)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (empty = disabled)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runStream(testnet bool, channels []string, duration time.Duration, metricsAddr string, verbose bool) error {
	log := newLogger(verbose)

	creds, err := client.CredentialsFromEnv()
	if err != nil {
		// Public channels work without credentials.
		log.Warn("no credentials, private channels unavailable", "error", err)
	}

	cfg := client.DefaultConfig(creds)
	if testnet {
		cfg = client.TestnetConfig(creds)
	}
	cfg.Logger = log

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		cfg.Metrics = metrics.New(reg)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(cfg)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	for _, ch := range channels {
		ch := ch
		ok := c.Subscribe(ch, func(pm *dispatch.ParsedMessage) {
			// Payload views are only valid inside the handler; printing
			// copies them out.
			fmt.Printf("%s %s\n", pm.Channel, pm.Data)
		})
		if !ok {
			log.Warn("subscribe request refused", "channel", ch)
		}
	}

	if duration > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(duration):
		}
	} else {
		<-ctx.Done()
	}

	log.Info("shutting down")
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

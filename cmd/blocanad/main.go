// Command blocanad is the Blocana node daemon. It wires configuration,
// logging, and the chain facade together; block production, validation,
// and networking policy live in internal/chain and its collaborators,
// not here.
package main

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"blocana/internal/chain"
	"blocana/internal/crypto"
	"blocana/internal/metrics"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "blocanad",
		Short: "Blocana node daemon",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults are used if omitted)")
	cmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve Prometheus metrics on")

	cmd.AddCommand(startCmd(&configPath, &metricsAddr))
	cmd.AddCommand(genesisCmd(&configPath))

	return cmd
}

func loadConfig(path string) (chain.Config, error) {
	if path == "" {
		return chain.DefaultConfig(), nil
	}
	return chain.LoadConfig(path)
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func startCmd(configPath, metricsAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "open the ledger store and mempool, start the metrics listener, and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("blocanad: %w", err)
			}

			bc, err := chain.Open(cfg, logger)
			if err != nil {
				return fmt.Errorf("blocanad: %w", err)
			}
			defer bc.Close()

			logger.Info("blocana node opened",
				zap.String("db_path", cfg.Storage.DBPath),
				zap.String("network_id", cfg.Chain.NetworkID))

			serveMetrics(*metricsAddr, logger)

			logger.Info("blocana node ready; no consensus or network collaborator wired, exiting")
			return nil
		},
	}
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}

func genesisCmd(configPath *string) *cobra.Command {
	var validatorHex string

	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "produce and print an empty genesis block for a validator key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if validatorHex == "" {
				return fmt.Errorf("blocanad: --validator is required")
			}
			raw, err := hex.DecodeString(validatorHex)
			if err != nil || len(raw) != crypto.PrivateKeySize {
				return fmt.Errorf("blocanad: --validator must be a %d-byte hex seed", crypto.PrivateKeySize)
			}
			var seed crypto.PrivateKey
			copy(seed[:], raw)
			kp := crypto.KeyPairFromPrivateKey(seed)

			logger := newLogger()
			defer logger.Sync()

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("blocanad: %w", err)
			}

			bc, err := chain.Open(cfg, logger)
			if err != nil {
				return fmt.Errorf("blocanad: %w", err)
			}
			defer bc.Close()

			b, err := bc.ProduceBlock(0, kp)
			if err != nil {
				return fmt.Errorf("blocanad: produce genesis: %w", err)
			}
			fmt.Printf("genesis block hash: %s\n", b.Hash())
			return nil
		},
	}
	cmd.Flags().StringVar(&validatorHex, "validator", "", "hex-encoded 32-byte validator private key seed")
	return cmd
}

// Package chain wires the ledger store, mempool, and block/state
// pipeline into a single Blockchain facade, plus the configuration
// surface and consensus/network collaborator interfaces spec.md §6/§9
// describe but leave to the glue layer.
package chain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"blocana/internal/mempool"
	"blocana/internal/store"
)

// StorageConfig mirrors store.Config's fields at the configuration-file
// boundary (snake_case YAML keys, per spec.md §6).
type StorageConfig struct {
	DBPath               string `yaml:"db_path"`
	MaxOpenFiles         int    `yaml:"max_open_files"`
	WriteBufferSize      int    `yaml:"write_buffer_size"`
	MaxWriteBufferNumber int    `yaml:"max_write_buffer_number"`
	TargetFileSizeBase   int64  `yaml:"target_file_size_base"`
	CacheSize            int    `yaml:"cache_size"`
}

func (c StorageConfig) toStoreConfig() store.Config {
	return store.Config{
		DBPath:               c.DBPath,
		MaxOpenFiles:         c.MaxOpenFiles,
		WriteBufferSize:      c.WriteBufferSize,
		MaxWriteBufferNumber: c.MaxWriteBufferNumber,
		TargetFileSizeBase:   c.TargetFileSizeBase,
		CacheSize:            c.CacheSize,
	}
}

// MempoolConfig mirrors mempool.Config at the configuration-file
// boundary, per spec.md §4.6.
type MempoolConfig struct {
	MaxSize            int    `yaml:"max_size"`
	ExpiryTime         int64  `yaml:"expiry_time"`
	MaxMemory          int    `yaml:"max_memory"`
	MinFeePerByte      uint64 `yaml:"min_fee_per_byte"`
	ReplacementFeeBump uint64 `yaml:"replacement_fee_bump"`
}

func (c MempoolConfig) toMempoolConfig() mempool.Config {
	return mempool.Config{
		MaxSize:            c.MaxSize,
		ExpiryTime:         c.ExpiryTime,
		MaxMemory:          c.MaxMemory,
		MinFeePerByte:      c.MinFeePerByte,
		ReplacementFeeBump: c.ReplacementFeeBump,
	}
}

// ChainConfig holds the network- and block-production-level options of
// spec.md §6.
type ChainConfig struct {
	NetworkID        string `yaml:"network_id"`
	MaxBlockSize     int    `yaml:"max_block_size"`
	TargetBlockTimeMs int64 `yaml:"target_block_time_ms"`
	MaxTxsPerBlock   int    `yaml:"max_txs_per_block"`
}

// Config is the top-level configuration surface exposed to the glue
// layer, per spec.md §6.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Mempool MempoolConfig `yaml:"mempool"`
	Chain   ChainConfig   `yaml:"chain"`
}

// DefaultConfig returns a Config built from each subsystem's own
// defaults.
func DefaultConfig() Config {
	sc := store.DefaultConfig()
	mc := mempool.DefaultConfig()
	return Config{
		Storage: StorageConfig{
			DBPath:               sc.DBPath,
			MaxOpenFiles:         sc.MaxOpenFiles,
			WriteBufferSize:      sc.WriteBufferSize,
			MaxWriteBufferNumber: sc.MaxWriteBufferNumber,
			TargetFileSizeBase:   sc.TargetFileSizeBase,
			CacheSize:            sc.CacheSize,
		},
		Mempool: MempoolConfig{
			MaxSize:            mc.MaxSize,
			ExpiryTime:         mc.ExpiryTime,
			MaxMemory:          mc.MaxMemory,
			MinFeePerByte:      mc.MinFeePerByte,
			ReplacementFeeBump: mc.ReplacementFeeBump,
		},
		Chain: ChainConfig{
			NetworkID:         "blocana-mainnet",
			MaxBlockSize:      1024 * 1024,
			TargetBlockTimeMs: 5000,
			MaxTxsPerBlock:    2000,
		},
	}
}

// LoadConfig reads and parses a YAML configuration file, starting from
// DefaultConfig so unspecified fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("chain: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("chain: parse config %s: %w", path, err)
	}
	return cfg, nil
}

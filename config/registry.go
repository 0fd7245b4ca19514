// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package config

import (
	"io"
	"os"

	"github.com/naoina/toml"
	"github.com/pkg/errors"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
)

// ProcessConfig is the process-wide configuration read once at startup:
// where local state lives, which Kafka cluster carries committee opinions,
// and where the Prometheus/dashboard HTTP listeners bind. Per-contract,
// per-height tunables stay in ExecutorConfig.
type ProcessConfig struct {
	DataDir           string `toml:"data_dir"`
	LevelDBCacheSizeMB int   `toml:"leveldb_cache_size_mb"`
	LevelDBHandles     int   `toml:"leveldb_handles"`

	KafkaBrokers []string `toml:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic"`
	KafkaGroupID string   `toml:"kafka_group_id"`

	MetricsListenAddr   string `toml:"metrics_listen_addr"`
	DashboardListenAddr string `toml:"dashboard_listen_addr"`

	DedupMaxElements        uint64  `toml:"dedup_max_elements"`
	DedupFalsePositiveRate  float64 `toml:"dedup_false_positive_rate"`
}

// ContractEntry is one statically-configured contract this process attaches
// to at startup: the committee membership and identity an Executor needs
// are known ahead of time by whoever deploys an executor process, the same
// way a klaytn node's validator set is fixed at genesis/config time rather
// than discovered at runtime.
type ContractEntry struct {
	ContractKey common.ContractKey `toml:"contract_key"`
	DriveKey    common.DriveKey    `toml:"drive_key"`
	ExecutorKey common.ExecutorKey `toml:"executor_key"`

	// PrivateKeySeedHex is the hex-encoded Ed25519 seed (32 bytes), kept as
	// text here; cmd/executor decodes it and expands it into a full
	// ed25519.PrivateKey.
	PrivateKeySeedHex string `toml:"private_key_seed"`

	Peers []common.ExecutorKey `toml:"peers"`

	ContractDeploymentBaseModificationID common.Key32 `toml:"contract_deployment_base_modification_id"`
	HasHistoricalBatches                 bool         `toml:"has_historical_batches"`
	InitialBatchIndex                    uint64       `toml:"initial_batch_index"`
}

// ContractRegistry is the full list of contracts one executor process
// attaches to.
type ContractRegistry struct {
	Contracts []ContractEntry `toml:"contract"`
}

// LoadProcessConfig parses a ProcessConfig from TOML and fills in the
// defaults a freshly-written config file would otherwise have to spell out.
func LoadProcessConfig(r io.Reader) (*ProcessConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "config: read process config")
	}

	var cfg ProcessConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse process config")
	}

	if cfg.LevelDBCacheSizeMB == 0 {
		cfg.LevelDBCacheSizeMB = 128
	}
	if cfg.LevelDBHandles == 0 {
		cfg.LevelDBHandles = 256
	}
	if cfg.DedupMaxElements == 0 {
		cfg.DedupMaxElements = 1 << 20
	}
	if cfg.DedupFalsePositiveRate == 0 {
		cfg.DedupFalsePositiveRate = 0.001
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "supercontract-opinions"
	}

	return &cfg, nil
}

// LoadProcessConfigFile opens path and calls LoadProcessConfig.
func LoadProcessConfigFile(path string) (*ProcessConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: open process config %q", path)
	}
	defer f.Close()
	return LoadProcessConfig(f)
}

// LoadContractRegistry parses the list of contracts an executor process
// attaches to at startup.
func LoadContractRegistry(r io.Reader) (*ContractRegistry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "config: read contract registry")
	}

	var reg ContractRegistry
	if err := toml.Unmarshal(data, &reg); err != nil {
		return nil, errors.Wrap(err, "config: parse contract registry")
	}
	return &reg, nil
}

// LoadContractRegistryFile opens path and calls LoadContractRegistry.
func LoadContractRegistryFile(path string) (*ContractRegistry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: open contract registry %q", path)
	}
	defer f.Close()
	return LoadContractRegistry(f)
}

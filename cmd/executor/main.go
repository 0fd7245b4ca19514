// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/urfave/cli.v1"

	"github.com/proximax-storage/xpx-supercontract-executor/config"
	"github.com/proximax-storage/xpx-supercontract-executor/dedup"
	"github.com/proximax-storage/xpx-supercontract-executor/executor"
	"github.com/proximax-storage/xpx-supercontract-executor/internal/log"
	"github.com/proximax-storage/xpx-supercontract-executor/localstore"
	"github.com/proximax-storage/xpx-supercontract-executor/messenger/kafka"
)

var logger = log.NewModuleLogger(log.ModuleCmd)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "Path to the process config TOML (data dir, Kafka, listen addresses)",
		Value: "executor.toml",
	}
	contractConfigFlag = cli.StringFlag{
		Name:  "contract-config",
		Usage: "Path to the height-piecewise contract params TOML",
		Value: "contracts.toml",
	}
	registryFlag = cli.StringFlag{
		Name:  "registry",
		Usage: "Path to the contract registry TOML (which contracts this process attaches to)",
		Value: "registry.toml",
	}
)

var app = cli.NewApp()

func init() {
	app.Name = "supercontract-executor"
	app.Usage = "Off-chain committee member executing supercontract batches"
	app.Flags = []cli.Flag{configFlag, contractConfigFlag, registryFlag}
	app.Action = run
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	procCfg, err := config.LoadProcessConfigFile(ctx.String(configFlag.Name))
	if err != nil {
		return errors.Wrap(err, "load process config")
	}
	contractCfg, err := config.LoadFile(ctx.String(contractConfigFlag.Name))
	if err != nil {
		return errors.Wrap(err, "load contract params config")
	}
	registry, err := config.LoadContractRegistryFile(ctx.String(registryFlag.Name))
	if err != nil {
		return errors.Wrap(err, "load contract registry")
	}

	db, err := localstore.OpenLevelDB(filepath.Join(procCfg.DataDir, "executor"), procCfg.LevelDBCacheSizeMB, procCfg.LevelDBHandles)
	if err != nil {
		return errors.Wrap(err, "open leveldb")
	}
	defer db.Close()
	store := localstore.New(db, 0)

	seen, err := dedup.New(procCfg.DedupMaxElements, procCfg.DedupFalsePositiveRate)
	if err != nil {
		return errors.Wrap(err, "build dedup cache")
	}

	registerer := prometheus.NewRegistry()
	metrics := executor.NewMetrics(registerer)
	dashboard := executor.NewDashboard()

	ex := executor.NewExecutor(contractCfg, store, seen, metrics, dashboard)

	var messengers []*kafka.Messenger
	for _, entry := range registry.Contracts {
		id, m, err := buildContractIdentity(procCfg, entry)
		if err != nil {
			return errors.Wrapf(err, "attach contract %s", entry.ContractKey.Hex())
		}
		messengers = append(messengers, m)
		ex.AddContract(id)
	}

	go serveHTTP("metrics", procCfg.MetricsListenAddr, promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))
	go serveHTTP("dashboard", procCfg.DashboardListenAddr, http.HandlerFunc(dashboard.ServeHTTP))

	waitForShutdown()

	ex.Shutdown()
	for _, m := range messengers {
		_ = m.Close()
	}
	return nil
}

// buildContractIdentity assembles one registry entry's executor.ContractIdentity:
// a dedicated kafka.Messenger instance scoped to the contract, plus
// whatever Storage/VirtualMachine/Blockchain bindings the deployment
// registers through buildCollaborators.
func buildContractIdentity(procCfg *config.ProcessConfig, entry config.ContractEntry) (executor.ContractIdentity, *kafka.Messenger, error) {
	seed, err := decodeSeed(entry.PrivateKeySeedHex)
	if err != nil {
		return executor.ContractIdentity{}, nil, errors.Wrap(err, "decode private key seed")
	}
	priv := ed25519.NewKeyFromSeed(seed)

	m, err := kafka.New(kafka.Config{
		Brokers: procCfg.KafkaBrokers,
		Topic:   procCfg.KafkaTopic,
		GroupID: procCfg.KafkaGroupID,
	}, entry.ExecutorKey, entry.ContractKey)
	if err != nil {
		return executor.ContractIdentity{}, nil, errors.Wrap(err, "dial kafka messenger")
	}

	collab, err := buildCollaborators(entry)
	if err != nil {
		_ = m.Close()
		return executor.ContractIdentity{}, nil, err
	}

	return executor.ContractIdentity{
		ContractKey: entry.ContractKey,
		DriveKey:    entry.DriveKey,
		ExecutorKey: entry.ExecutorKey,
		PrivateKey:  priv,
		Peers:       entry.Peers,

		ContractDeploymentBaseModificationID: entry.ContractDeploymentBaseModificationID,
		HasHistoricalBatches:                 entry.HasHistoricalBatches,
		InitialBatchIndex:                    entry.InitialBatchIndex,

		Storage:    collab.Storage,
		VM:         collab.VM,
		Messenger:  m,
		Blockchain: collab.Blockchain,
	}, m, nil
}

func decodeSeed(hexSeed string) ([]byte, error) {
	seed, err := hex.DecodeString(hexSeed)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected %d-byte hex seed, got %d", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}

func serveHTTP(name, addr string, handler http.Handler) {
	if addr == "" {
		return
	}
	logger.Info("starting listener", "name", name, "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("listener stopped", "name", name, "err", err)
	}
}

func waitForShutdown() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logger.Info("shutting down", "signal", sig)
}

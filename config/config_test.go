// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cespare/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTOML = `
contract_deployment_base_modification_id = "00"

[[config]]
activation_height = 0
[config.params]
autorun_file = "autorun.wasm"
autorun_function = "run"
autorun_gas_limit = 1000
execution_gas_multiplier = 10
max_internet_connections = 4
internet_buffer_size = 65536
internet_connection_timeout_ms = 5000
max_batches_history_size = 128
service_unavailable_timeout_ms = 2000
share_opinion_timeout_ms = 3000
unsuccessful_approval_delay_ms = 10000
successful_execution_delay_ms = 1000
unsuccessful_execution_delay_ms = 1000

[[config]]
activation_height = 1000
[config.params]
autorun_file = "autorun.wasm"
autorun_function = "run"
autorun_gas_limit = 2000
execution_gas_multiplier = 10
max_internet_connections = 8
internet_buffer_size = 65536
internet_connection_timeout_ms = 5000
max_batches_history_size = 256
service_unavailable_timeout_ms = 2000
share_opinion_timeout_ms = 3000
unsuccessful_approval_delay_ms = 10000
successful_execution_delay_ms = 1000
unsuccessful_execution_delay_ms = 1000
`

func TestGetConfigByHeightDescendingLowerBound(t *testing.T) {
	cfg, err := Load(strings.NewReader(testTOML))
	require.NoError(t, err)

	assert.Equal(t, uint64(1000), cfg.GetConfigByHeight(0).AutorunGasLimit)
	assert.Equal(t, uint64(1000), cfg.GetConfigByHeight(999).AutorunGasLimit)
	assert.Equal(t, uint64(2000), cfg.GetConfigByHeight(1000).AutorunGasLimit)
	assert.Equal(t, uint64(2000), cfg.GetConfigByHeight(5000).AutorunGasLimit)
}

func TestLoadResolvesDurations(t *testing.T) {
	cfg, err := Load(strings.NewReader(testTOML))
	require.NoError(t, err)

	params := cfg.GetConfigByHeight(0)
	assert.Equal(t, 5*time.Second, params.InternetConnectionTimeout)
	assert.Equal(t, 10*time.Second, params.UnsuccessfulApprovalDelay)
}

func TestLoadDefaultsCacheSizeBudget(t *testing.T) {
	cfg, err := Load(strings.NewReader(testTOML))
	require.NoError(t, err)
	assert.NotZero(t, cfg.CacheSizeBudget)
}

// TestLoadFileFromCopiedFixture copies the checked-in fixture into a scratch
// directory before loading it, so the test process never opens (and can
// never accidentally truncate) testdata/contract_params.toml directly.
func TestLoadFileFromCopiedFixture(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "contract_params.toml")
	require.NoError(t, cp.CopyFile(dst, filepath.Join("testdata", "contract_params.toml")))

	cfg, err := LoadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), cfg.GetConfigByHeight(0).AutorunGasLimit)
}

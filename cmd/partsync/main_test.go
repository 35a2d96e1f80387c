package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/logger"
	"github.com/ajitpratap0/partsync/pkg/testutil"
)

func writeConfig(t *testing.T, env *testutil.TestEnvironment, name, dir, algorithm string) string {
	t.Helper()
	return env.WriteFile(name, []byte(`name: cli-test
checkpoint:
  store: file
  file:
    dir: `+dir+`
compression:
  algorithm: `+algorithm+`
logging:
  level: error
  output_paths: ["stderr"]
`))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(logger.SetForTesting(logger.Get()))
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStateLifecycle(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	dir := env.Path("checkpoints")
	cfgPath := writeConfig(t, env, "partsync.yaml", dir, "zstd")
	input := env.WriteFile("state.json", []byte(
		`{"states":[{"partition":{"account_id":"A"},"cursor":{"updated_at":"2024-01-10"}}]}`))

	_, err := run(t, "--config", cfgPath, "state", "put", "tickets", input)
	require.NoError(t, err)

	blob, err := os.ReadFile(filepath.Join(dir, "tickets.ckpt"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(blob, []byte("PSC1")), "stored with the configured compression")

	out, err := run(t, "--config", cfgPath, "state", "list")
	require.NoError(t, err)
	assert.Equal(t, "tickets\n", out)

	out, err = run(t, "--config", cfgPath, "state", "show", "tickets", "--compact")
	require.NoError(t, err)
	assert.JSONEq(t, `{"states":[{"partition":{"account_id":"A"},"cursor":{"updated_at":"2024-01-10"}}]}`, out)

	_, err = run(t, "--config", cfgPath, "state", "delete", "tickets")
	require.Error(t, err, "delete needs --yes")

	_, err = run(t, "--config", cfgPath, "state", "delete", "tickets", "--yes")
	require.NoError(t, err)

	_, err = run(t, "--config", cfgPath, "state", "show", "tickets")
	require.Error(t, err)
	assert.True(t, checkpoint.IsNotFound(err))
}

func TestStateShow_CompactKeepsMarkup(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	cfgPath := writeConfig(t, env, "partsync.yaml", env.Path("checkpoints"), "none")
	input := env.WriteFile("state.json", []byte(
		`{"states":[{"partition":{"org":"<a&b>"},"cursor":{"updated_at":"2024-01-10"}}]}`))

	_, err := run(t, "--config", cfgPath, "state", "put", "tickets", input)
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "state", "show", "tickets", "--compact")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, `"org":"<a&b>"`)
}

func TestStatePut_RejectsMalformed(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	cfgPath := writeConfig(t, env, "partsync.yaml", env.Path("checkpoints"), "none")
	input := env.WriteFile("state.json", []byte(`{"states":[{"cursor":{}}]}`))

	_, err := run(t, "--config", cfgPath, "state", "put", "tickets", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid checkpoint file")
}

func TestStateCopy(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	srcDir, dstDir := env.Path("src"), env.Path("dst")
	srcCfg := writeConfig(t, env, "src.yaml", srcDir, "lz4")
	dstCfg := writeConfig(t, env, "dst.yaml", dstDir, "none")
	input := env.WriteFile("state.json", []byte(`{"states":[{"partition":{"id":1},"cursor":{"n":2}}]}`))

	_, err := run(t, "--config", srcCfg, "state", "put", "orders", input)
	require.NoError(t, err)
	_, err = run(t, "--config", srcCfg, "state", "copy", "orders", "--to-config", dstCfg)
	require.NoError(t, err)

	src, err := os.ReadFile(filepath.Join(srcDir, "orders.ckpt"))
	require.NoError(t, err)
	dst, err := os.ReadFile(filepath.Join(dstDir, "orders.ckpt"))
	require.NoError(t, err)
	assert.Equal(t, src, dst, "copies are byte for byte")

	out, err := run(t, "--config", dstCfg, "state", "show", "orders", "--compact")
	require.NoError(t, err, "any codec reads any framing")
	assert.JSONEq(t, `{"states":[{"partition":{"id":1},"cursor":{"n":2}}]}`, out)
}

func TestKeyCommands(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	cfgPath := writeConfig(t, env, "partsync.yaml", env.Path("checkpoints"), "none")

	out, err := run(t, "--config", cfgPath, "key", "encode", `{"region":"eu","account_id":42}`)
	require.NoError(t, err)
	assert.Equal(t, `{"account_id":42,"region":"eu"}`, strings.TrimSpace(out))

	out, err = run(t, "--config", cfgPath, "key", "decode", `{"account_id":42,"region":"eu"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"account_id":42,"region":"eu"}`, out)

	_, err = run(t, "--config", cfgPath, "key", "encode", `[1]`)
	assert.Error(t, err)
	_, err = run(t, "--config", cfgPath, "key", "decode", `not-a-key`)
	assert.Error(t, err)
}

func TestStoresAndVersion(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	cfgPath := writeConfig(t, env, "partsync.yaml", env.Path("checkpoints"), "none")

	out, err := run(t, "--config", cfgPath, "stores")
	require.NoError(t, err)
	assert.Contains(t, out, "* file\n")
	assert.Contains(t, out, "  kafka\n")

	out, err = run(t, "--config", cfgPath, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "partsync v"+version)
}

func TestInvalidConfig(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	cfgPath := env.WriteFile("bad.yaml", []byte("checkpoint:\n  store: bolt\n  bolt:\n    path: \"\"\n"))

	_, err := run(t, "--config", cfgPath, "state", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

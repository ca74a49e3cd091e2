package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/mdarray/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mdarray "+version+"\n", out)
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stress:\n  rounds: 3\n"), 0o600))

	out, err := execute(t, "config", "--config", path, "--device", "none", "--log-level", "error")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 3, cfg.Stress.Rounds)
	assert.Equal(t, "none", cfg.Device.Backend)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestSelftestCommand(t *testing.T) {
	out, err := execute(t, "selftest", "--device", "emulated", "--log-level", "error")
	require.NoError(t, err)
	for _, name := range []string{"sizes", "empty", "move", "reassign", "lower-bounds", "round-trip", "stress"} {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, "FAIL")
	assert.Contains(t, out, "tracker: host: 0 B")
}

func TestSelftestWithoutDevice(t *testing.T) {
	out, err := execute(t, "selftest", "--device", "none", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "skip (no device)")
}

func TestStressCommand(t *testing.T) {
	out, err := execute(t, "stress", "--workers", "4", "--rounds", "20", "--shape", "30,40", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "4 workers x 20 rounds, 80 arrays")
}

func TestInvalidInvocations(t *testing.T) {
	_, err := execute(t, "stress", "--device", "quantum")
	assert.ErrorContains(t, err, "unknown backend")

	_, err = execute(t, "config", "--log-format", "xml")
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = execute(t, "stress", "--shape", "1,1,1,1,1,1,1")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/koscakluka/huddle-core/core/emergency"
	"github.com/koscakluka/huddle-core/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HUDDLE_LLM_API_KEY", "")

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionPrintsVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", stdout)
}

func TestCheckFindsRedFlag(t *testing.T) {
	t.Setenv("HUDDLE_EMERGENCY_CLASSIFIER", config.ClassifierPattern)

	stdout, _, err := executeCLI(t, "check", "chest pain and short of breath")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, true, out["isEmergency"])
	assert.Equal(t, "Possible cardiac event", out["condition"])
	assert.Equal(t, emergency.Message, out["message"])
}

func TestCheckChainWithoutModelUsesPatterns(t *testing.T) {
	stdout, _, err := executeCLI(t, "check", "runny nose")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, false, out["isEmergency"])
	assert.NotContains(t, out, "message")
}

func TestCheckLLMClassifierNeedsKey(t *testing.T) {
	t.Setenv("HUDDLE_EMERGENCY_CLASSIFIER", config.ClassifierLLM)

	_, _, err := executeCLI(t, "check", "headache")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestServeNeedsKey(t *testing.T) {
	_, _, err := executeCLI(t, "serve")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestConfigFileMustExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, _, err := executeCLI(t, "--config", missing, "check", "headache")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestConfigFileSelectsProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huddle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: mistral\n"), 0o644))

	_, _, err := executeCLI(t, "--config", path, "check", "headache")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnknownProvider)
}

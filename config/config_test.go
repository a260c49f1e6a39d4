package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()

	dir, err := ioutil.TempDir("", "si-rtm-config")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeConfig(t, "config.toml", `
clientVersion = "1.0.0"

[log]
level = "debug"

[client]
brokerUrl = "tcp://127.0.0.1:1883"
clientId = "client-1"
defaultKey = "key1"
keepAlive = 60
dispatch_pool_size = 4
publish_rate = 100
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "1.0.0", cfg.ClientVersion)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "tcp://127.0.0.1:1883", cfg.Client.BrokerUrl)
	require.Equal(t, "client-1", cfg.Client.ClientId)
	require.Equal(t, "key1", cfg.Client.DefaultKey)
	require.Equal(t, 60, cfg.Client.KeepAlive)
	require.Equal(t, 4, cfg.Client.DispatchPoolSize)
	require.Equal(t, 100, cfg.Client.PublishRate)

	// Untouched numeric options fall back to package defaults.
	require.Equal(t, ConnectTimeout, cfg.Client.ConnectTimeout)
	require.Equal(t, AckTimeout, cfg.Client.AckTimeout)
	require.Equal(t, TimeoutRetries, cfg.Client.TimeoutRetries)
	require.Equal(t, AutoIdPrefix, cfg.Client.AutoIdPrefix)
}

func TestLoadMissingBrokerUrl(t *testing.T) {
	dir := writeConfig(t, "config.toml", `
[client]
defaultKey = "key1"
`)

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := writeConfig(t, "other.toml", `
[client]
brokerUrl = "tcp://10.0.0.1:1883"
`)

	os.Setenv("CFG_NAME", "other.toml")
	defer os.Unsetenv("CFG_NAME")

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "tcp://10.0.0.1:1883", cfg.Client.BrokerUrl)
}

func TestLoadMissingFile(t *testing.T) {
	dir := writeConfig(t, "unrelated.toml", "")

	_, err := Load(dir)
	require.Error(t, err)
}

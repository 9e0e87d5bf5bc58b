package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/garvazsof/MVC/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CLIENT_ID", "REDIS_URL", "RPC_TARGET", "LISTEN_ADDR", "KEYSTORE_DIR"} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Validate())
	assert.Equal(t, "0x5", cfg.Chain.ChainID)
	assert.Equal(t, core.ChainNamespaceEIP155, cfg.Chain.Namespace)
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "mvc.yaml", `
listen_addr: ":8080"
client_id: "mvc-test"
chain:
  namespace: eip155
  chain_id: "0xaa36a7"
  rpc_target: "https://rpc.sepolia.org"
  explorer_url: "https://sepolia.etherscan.io"
  display_name: "Sepolia"
contract:
  address: "0x1111111111111111111111111111111111111111"
  recipient: "0x2222222222222222222222222222222222222222"
tokens:
  access_ttl: 1m
  refresh_ttl: 1h
sessions:
  idle_ttl: 10m
  init_timeout: 5s
  evict_interval: 30s
  mine_timeout: 2m
  max_mounted: 50
debug_routes: true
logging:
  level: debug
  format: json
diagnostics:
  amount: "0.5"
  message: "hello"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "mvc-test", cfg.ClientID)
	assert.Equal(t, "0xaa36a7", cfg.Chain.ChainID)
	assert.Equal(t, time.Minute, cfg.Tokens.AccessTTL)
	assert.Equal(t, 10*time.Minute, cfg.Sessions.IdleTTL)
	assert.Equal(t, 50, cfg.Sessions.MaxMounted)
	assert.True(t, cfg.DebugRoutes)
	assert.Equal(t, "json", cfg.Logging.Format)

	// unset keys keep their defaults
	assert.Equal(t, Default().Diagnostics.Destination, cfg.Diagnostics.Destination)

	shell := cfg.ShellConfig()
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), shell.Contract.Address)
	assert.Equal(t, core.Video721.ABI, shell.Contract.ABI)
	assert.Equal(t, common.HexToAddress("0x2222222222222222222222222222222222222222"), shell.Recipient)
	assert.Equal(t, "0.5", shell.Diagnostics.Amount.String())
	assert.Equal(t, "hello", shell.Diagnostics.Message)
	assert.Equal(t, 2*time.Minute, shell.MineTimeout)
	assert.Equal(t, "https://sepolia.etherscan.io/tx/0xabc", shell.Chain.TxURL("0xabc"))
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "mvc.yaml", "listen_addr: \":8080\"\nlisten_port: 8080\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen_port")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLIENT_ID", "from-env")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("RPC_TARGET", "http://127.0.0.1:8545")
	t.Setenv("LISTEN_ADDR", ":7000")
	t.Setenv("KEYSTORE_DIR", "/var/lib/mvc/keystore")

	path := writeFile(t, "mvc.yaml", "client_id: from-file\nlisten_addr: \":8080\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.ClientID)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Equal(t, "http://127.0.0.1:8545", cfg.Chain.RPCTarget)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "/var/lib/mvc/keystore", cfg.KeystoreDir)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Chain.Namespace = "solana"
	cfg.Chain.ChainID = "five"
	cfg.Chain.RPCTarget = "not a url"
	cfg.Contract.Address = "0x123"
	cfg.Diagnostics.Amount = "-1"
	cfg.Tokens.RefreshTTL = time.Second
	cfg.Logging.Level = "loud"
	cfg.Sessions.MaxMounted = -1

	errs := cfg.Validate()

	var paths []string
	for _, err := range errs {
		var verr ValidationError
		require.True(t, errors.As(err, &verr))
		paths = append(paths, verr.Path)
	}

	assert.ElementsMatch(t, []string{
		"chain.namespace",
		"chain.chain_id",
		"chain.rpc_target",
		"contract.address",
		"diagnostics.amount",
		"tokens.refresh_ttl",
		"logging.level",
		"sessions.max_mounted",
	}, paths)
}

func TestLoadJoinsValidationErrors(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "mvc.yaml", "listen_addr: \"\"\nlogging:\n  format: xml\n")

	_, err := Load(path)
	require.Error(t, err)

	msg := err.Error()
	assert.True(t, strings.Contains(msg, "listen_addr: must not be empty"))
	assert.True(t, strings.Contains(msg, "logging.format: invalid value \"xml\"; allowed values: json, console"))
}

func TestSigningKey(t *testing.T) {
	generated, err := TokenConfig{}.SigningKey()
	require.NoError(t, err)
	assert.Equal(t, elliptic.P256(), generated.Curve)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	path := writeFile(t, "jwt.pem", string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})))

	loaded, err := TokenConfig{SigningKeyFile: path}.SigningKey()
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))

	bad := writeFile(t, "bad.pem", "not a key")
	_, err = TokenConfig{SigningKeyFile: bad}.SigningKey()
	assert.Error(t, err)
}

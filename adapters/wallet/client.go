package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/garvazsof/MVC/core"
	"github.com/garvazsof/MVC/ports"
	"go.uber.org/zap"
)

const (
	VerifierKeystore   = "keystore"
	VerifierPrivateKey = "private_key"
)

// Config configures a wallet client
type Config struct {
	ClientID    string
	Chain       core.ChainConfig
	KeystoreDir string
}

// Option customizes a Client
type Option func(*Client)

// WithRPCClient uses an existing node connection instead of dialing Chain.RPCTarget
func WithRPCClient(c *rpc.Client) Option {
	return func(cl *Client) {
		cl.dial = func(context.Context, string) (*rpc.Client, error) { return c, nil }
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// Client is a wallet/auth provider backed by a local keystore or a raw key
type Client struct {
	cfg    Config
	logger *zap.Logger
	dial   func(ctx context.Context, url string) (*rpc.Client, error)
	now    func() time.Time

	initOnce sync.Once
	initErr  error

	mu       sync.Mutex
	rpc      *rpc.Client
	keystore *keystore.KeyStore
	provider *SigningProvider
	profile  *core.UserProfile
	closed   bool
}

var _ ports.AuthClient = (*Client)(nil)

// NewClient creates a wallet client. Nothing touches the network until Init.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		logger: zap.NewNop(),
		dial:   rpc.DialContext,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFactory returns a factory producing clients that share cfg
func NewFactory(cfg Config, opts ...Option) ports.AuthClientFactory {
	return func() ports.AuthClient {
		return NewClient(cfg, opts...)
	}
}

// Init connects to the node and opens the keystore
func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.init(ctx)
		if c.initErr != nil {
			c.logger.Error("wallet client init failed", zap.Error(c.initErr))
		}
	})
	return c.initErr
}

func (c *Client) init(ctx context.Context) error {
	if c.cfg.Chain.Namespace != core.ChainNamespaceEIP155 {
		return fmt.Errorf("%w: unsupported chain namespace %q", core.ErrInitFailed, c.cfg.Chain.Namespace)
	}

	want, err := c.cfg.Chain.ChainIDBig()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInitFailed, err)
	}

	if c.isClosed() {
		return fmt.Errorf("%w: %w", core.ErrInitFailed, core.ErrClosed)
	}

	client, err := c.dial(ctx, c.cfg.Chain.RPCTarget)
	if err != nil {
		return fmt.Errorf("%w: failed to dial %s: %v", core.ErrInitFailed, c.cfg.Chain.RPCTarget, err)
	}

	var got hexutil.Big
	if err := client.CallContext(ctx, &got, MethodChainID); err != nil {
		client.Close()
		return fmt.Errorf("%w: failed to query chain id: %v", core.ErrInitFailed, err)
	}
	if got.ToInt().Cmp(want) != 0 {
		client.Close()
		return fmt.Errorf("%w: %w: node reports %s, configured %s",
			core.ErrInitFailed, core.ErrChainMismatch, got.String(), c.cfg.Chain.ChainID)
	}

	var ks *keystore.KeyStore
	if c.cfg.KeystoreDir != "" {
		ks = keystore.NewKeyStore(c.cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		client.Close()
		return fmt.Errorf("%w: %w", core.ErrInitFailed, core.ErrClosed)
	}
	c.rpc = client
	c.keystore = ks
	c.mu.Unlock()

	c.logger.Info("wallet client ready",
		zap.String("chain", c.cfg.Chain.DisplayName),
		zap.String("chain_id", c.cfg.Chain.ChainID))

	return nil
}

// Connect authenticates with creds and returns a signing provider
func (c *Client) Connect(ctx context.Context, creds core.Credentials) (ports.ChainProvider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rpc == nil {
		return nil, core.ErrNotInitialized
	}

	key, verifier, err := c.unlock(creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAuthFailed, err)
	}

	chainID, err := c.cfg.Chain.ChainIDBig()
	if err != nil {
		return nil, err
	}

	if c.provider != nil {
		c.provider.Close()
	}

	c.provider = NewSigningProvider(c.rpc, chainID, key)
	c.profile = &core.UserProfile{
		Address:  c.provider.Address().Hex(),
		Verifier: verifier,
		ClientID: c.cfg.ClientID,
		LoginAt:  c.now().UTC(),
	}

	c.logger.Info("wallet connected",
		zap.String("address", c.profile.Address),
		zap.String("verifier", verifier))

	return c.provider, nil
}

func (c *Client) unlock(creds core.Credentials) (*ecdsa.PrivateKey, string, error) {
	if creds.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(creds.PrivateKey), "0x"))
		if err != nil {
			return nil, "", fmt.Errorf("invalid private key: %w", err)
		}
		if creds.Address != "" && !strings.EqualFold(crypto.PubkeyToAddress(key.PublicKey).Hex(), creds.Address) {
			return nil, "", fmt.Errorf("private key does not match address %s", creds.Address)
		}
		return key, VerifierPrivateKey, nil
	}

	if creds.Address == "" {
		return nil, "", fmt.Errorf("address or private key required")
	}
	if !common.IsHexAddress(creds.Address) {
		return nil, "", fmt.Errorf("invalid address %q", creds.Address)
	}
	if c.keystore == nil {
		return nil, "", fmt.Errorf("no keystore configured")
	}

	account, err := c.keystore.Find(accounts.Account{Address: common.HexToAddress(creds.Address)})
	if err != nil {
		return nil, "", fmt.Errorf("account %s: %w", creds.Address, err)
	}

	keyJSON, err := os.ReadFile(account.URL.Path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := keystore.DecryptKey(keyJSON, creds.Passphrase)
	if err != nil {
		return nil, "", fmt.Errorf("failed to unlock account: %w", err)
	}

	return key.PrivateKey, VerifierKeystore, nil
}

// Logout forgets the connected account
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rpc == nil {
		return core.ErrNotInitialized
	}
	if c.provider == nil {
		return core.ErrNotConnected
	}

	c.logger.Info("wallet disconnected", zap.String("address", c.profile.Address))

	c.provider.Close()
	c.provider = nil
	c.profile = nil

	return nil
}

// UserInfo describes the connected user
func (c *Client) UserInfo(ctx context.Context) (*core.UserProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rpc == nil {
		return nil, core.ErrNotInitialized
	}
	if c.profile == nil {
		return nil, core.ErrNotConnected
	}

	profile := *c.profile
	return &profile, nil
}

// Provider returns the connected provider, or nil
func (c *Client) Provider() ports.ChainProvider {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.provider == nil {
		return nil
	}
	return c.provider
}

// Close drops the wallet session and the node connection. An Init still
// dialing when Close runs releases its connection and fails.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.provider != nil {
		c.provider.Close()
		c.provider = nil
		c.profile = nil
	}
	if c.rpc != nil {
		c.rpc.Close()
		c.rpc = nil
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

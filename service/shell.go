package service

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/garvazsof/MVC/adapters/rpc"
	"github.com/garvazsof/MVC/core"
	"github.com/garvazsof/MVC/ports"
	"go.uber.org/zap"
)

const (
	DefaultTitle  = "MVC App | Empowering Creators"
	DefaultFooter = "MVC empowers you"
	DefaultSplash = "MVC_Logo.png"

	// DefaultMineTimeout bounds the wait for a submitted mint to be included
	DefaultMineTimeout = 10 * time.Minute
)

// ShellConfig is shared by every shell of a process
type ShellConfig struct {
	Title       string
	Footer      string
	Splash      string
	Chain       core.ChainConfig
	Contract    core.ContractDescriptor
	Recipient   common.Address
	Diagnostics rpc.Diagnostics
	MineTimeout time.Duration
}

// DefaultShellConfig returns the stock Goerli/Video721 configuration
func DefaultShellConfig() ShellConfig {
	return ShellConfig{
		Title:    DefaultTitle,
		Footer:   DefaultFooter,
		Splash:   DefaultSplash,
		Contract: core.Video721,
		Chain: core.ChainConfig{
			Namespace:   core.ChainNamespaceEIP155,
			ChainID:     "0x5",
			RPCTarget:   "https://rpc.ankr.com/eth_goerli",
			ExplorerURL: "https://goerli.etherscan.io",
			DisplayName: "Goerli",
		},
		Recipient:   core.DefaultRecipient,
		Diagnostics: rpc.DefaultDiagnostics(),
		MineTimeout: DefaultMineTimeout,
	}
}

// Shell is the state of one page session: the auth client, the chain
// provider slot and the mint input. The provider slot decides the view.
type Shell struct {
	id        string
	cfg       ShellConfig
	auth      ports.AuthClient
	contracts ports.ContractFactory
	events    ports.EventPublisher
	logger    *zap.Logger

	initOnce sync.Once
	initErr  error

	mu         sync.Mutex
	ready      bool
	closed     bool
	cancelInit context.CancelFunc
	provider ports.ChainProvider
	uri      string
	minting  bool
	lastSeen time.Time
}

// NewShell creates an unmounted shell. events may be nil.
func NewShell(
	id string,
	cfg ShellConfig,
	auth ports.AuthClient,
	contracts ports.ContractFactory,
	events ports.EventPublisher,
	logger *zap.Logger,
) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shell{
		id:        id,
		cfg:       cfg,
		auth:      auth,
		contracts: contracts,
		events:    events,
		logger:    logger.Named("shell").With(zap.String("session_id", id)),
		lastSeen:  time.Now(),
	}
}

// ID returns the page session id
func (s *Shell) ID() string {
	return s.id
}

// Init initializes the auth client once and adopts a provider it restored.
// Close cancels an Init in progress.
func (s *Shell) Init(ctx context.Context) error {
	s.initOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			s.initErr = core.ErrClosed
			return
		}
		s.cancelInit = cancel
		s.mu.Unlock()

		if err := s.auth.Init(ctx); err != nil {
			s.logger.Error("auth client init failed", zap.Error(err))
			s.initErr = err
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			s.initErr = core.ErrClosed
			return
		}
		s.ready = true
		if p := s.auth.Provider(); p != nil {
			s.provider = p
		}
		s.mu.Unlock()
	})
	return s.initErr
}

// Ready reports whether Init completed successfully
func (s *Shell) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Login connects the wallet and stores its provider
func (s *Shell) Login(ctx context.Context, creds core.Credentials) error {
	if !s.Ready() {
		s.logger.Warn(core.ErrNotInitialized.Error())
		return core.ErrNotInitialized
	}

	provider, err := s.auth.Connect(ctx, creds)
	if err != nil {
		s.logger.Error("login failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.provider = provider
	s.mu.Unlock()

	s.logger.Info("now connected")
	return nil
}

// Logout ends the wallet session. The provider slot is cleared whatever the
// auth client reports.
func (s *Shell) Logout(ctx context.Context) error {
	if !s.Ready() {
		s.logger.Warn(core.ErrNotInitialized.Error())
		return core.ErrNotInitialized
	}

	err := s.auth.Logout(ctx)

	s.mu.Lock()
	s.provider = nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("logout failed", zap.Error(err))
		return err
	}
	return nil
}

// SetURI replaces the mint input
func (s *Shell) SetURI(uri string) {
	s.mu.Lock()
	s.uri = uri
	s.mu.Unlock()

	s.logger.Debug("mint uri updated", zap.String("uri", uri))
}

// URI returns the mint input
func (s *Shell) URI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uri
}

// State derives the view state from the provider slot
func (s *Shell) State() core.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Shell) state() core.ViewState {
	if s.provider != nil {
		return core.LoggedIn
	}
	return core.LoggedOut
}

// View renders the current view
func (s *Shell) View() core.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := core.View{
		State:  s.state(),
		Title:  s.cfg.Title,
		Footer: s.cfg.Footer,
		Ready:  s.ready,
	}

	switch v.State {
	case core.LoggedIn:
		uri := s.uri
		v.MintURI = &uri
		v.Actions = []core.Action{core.ActionMint, core.ActionLogout}
	default:
		v.Splash = s.cfg.Splash
		v.Actions = []core.Action{core.ActionLogin}
	}

	return v
}

// Mint calls safeMint(recipient, uri) with the current input and waits for
// the transaction to be included. Only one mint runs per shell at a time.
// Once submitted, the wait outlives ctx and is bounded by MineTimeout.
func (s *Shell) Mint(ctx context.Context) (*core.MintReceipt, error) {
	s.mu.Lock()
	provider := s.provider
	if provider == nil {
		s.mu.Unlock()
		s.logger.Warn(core.ErrProviderMissing.Error())
		return nil, core.ErrProviderMissing
	}
	if s.minting {
		s.mu.Unlock()
		return nil, core.ErrMintInFlight
	}
	uri := s.uri
	if strings.TrimSpace(uri) == "" {
		s.mu.Unlock()
		return nil, core.ErrEmptyURI
	}
	s.minting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.minting = false
		s.mu.Unlock()
	}()

	contract, err := s.contracts.Bind(provider, s.cfg.Contract)
	if err != nil {
		s.logger.Error("failed to bind contract", zap.Error(err))
		return nil, err
	}

	s.logger.Info("sending mint transaction", zap.String("uri", uri))
	tx, err := contract.SafeMint(ctx, s.cfg.Recipient, uri)
	if err != nil {
		s.logger.Error("mint transaction failed", zap.Error(err))
		return nil, err
	}

	s.logger.Info("mining transaction", zap.String("tx_hash", tx.Hash().Hex()))

	timeout := s.cfg.MineTimeout
	if timeout <= 0 {
		timeout = DefaultMineTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	receipt, err := contract.WaitMined(ctx, tx)
	if err != nil {
		s.logger.Error("mint transaction not mined", zap.String("tx_hash", tx.Hash().Hex()), zap.Error(err))
		return nil, err
	}

	result := &core.MintReceipt{
		TxHash:      tx.Hash(),
		BlockNumber: receipt.BlockNumber,
		Recipient:   s.cfg.Recipient,
		URI:         uri,
		ExplorerURL: s.cfg.Chain.TxURL(tx.Hash().Hex()),
		TokenID:     contract.TokenID(receipt),
	}

	s.logger.Info("mint transaction mined",
		zap.String("tx_hash", result.TxHash.Hex()),
		zap.String("explorer_url", result.ExplorerURL))

	if s.events != nil {
		if err := s.events.PublishMinted(ctx, s.id, result); err != nil {
			s.logger.Warn("failed to publish minted event", zap.Error(err))
		}
	}

	return result, nil
}

// UserInfo describes the connected user
func (s *Shell) UserInfo(ctx context.Context) (*core.UserProfile, error) {
	if !s.Ready() {
		s.logger.Warn(core.ErrNotInitialized.Error())
		return nil, core.ErrNotInitialized
	}

	user, err := s.auth.UserInfo(ctx)
	if err != nil {
		s.logger.Error("failed to get user info", zap.Error(err))
		return nil, err
	}
	s.logger.Debug("user info", zap.String("address", user.Address), zap.String("verifier", user.Verifier))
	return user, nil
}

// ChainID returns the connected chain id
func (s *Shell) ChainID(ctx context.Context) (*big.Int, error) {
	f, err := s.facade()
	if err != nil {
		return nil, err
	}
	id, err := f.ChainID(ctx)
	return id, s.logResult("chain id", id, err)
}

// Accounts returns the connected accounts
func (s *Shell) Accounts(ctx context.Context) ([]common.Address, error) {
	f, err := s.facade()
	if err != nil {
		return nil, err
	}
	accs, err := f.Accounts(ctx)
	return accs, s.logResult("accounts", accs, err)
}

// Balance returns the connected account's balance in ether
func (s *Shell) Balance(ctx context.Context) (string, error) {
	f, err := s.facade()
	if err != nil {
		return "", err
	}
	balance, err := f.Balance(ctx)
	return balance, s.logResult("balance", balance, err)
}

// SendTransaction sends the diagnostic transfer and waits for its receipt
func (s *Shell) SendTransaction(ctx context.Context) (*types.Receipt, error) {
	f, err := s.facade()
	if err != nil {
		return nil, err
	}
	receipt, err := f.SendTransaction(ctx)
	if err != nil {
		return nil, s.logResult("receipt", nil, err)
	}
	return receipt, s.logResult("receipt", receipt.TxHash.Hex(), nil)
}

// SignMessage signs the diagnostic message
func (s *Shell) SignMessage(ctx context.Context) (string, error) {
	f, err := s.facade()
	if err != nil {
		return "", err
	}
	sig, err := f.SignMessage(ctx)
	return sig, s.logResult("signed message", sig, err)
}

// PrivateKey exports the connected key. The key itself is never logged.
func (s *Shell) PrivateKey(ctx context.Context) (string, error) {
	f, err := s.facade()
	if err != nil {
		return "", err
	}
	key, err := f.PrivateKey(ctx)
	if err != nil {
		return "", s.logResult("private key", nil, err)
	}
	return key, nil
}

// Close releases the auth client and cancels a pending Init
func (s *Shell) Close() {
	s.mu.Lock()
	s.closed = true
	s.ready = false
	s.provider = nil
	cancel := s.cancelInit
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	s.auth.Close()
}

func (s *Shell) facade() (*rpc.Facade, error) {
	s.mu.Lock()
	provider := s.provider
	s.mu.Unlock()

	if provider == nil {
		s.logger.Warn(core.ErrProviderMissing.Error())
		return nil, core.ErrProviderMissing
	}
	return rpc.NewFacade(provider, s.cfg.Diagnostics), nil
}

func (s *Shell) logResult(what string, value interface{}, err error) error {
	if err != nil {
		s.logger.Error("failed to get "+what, zap.Error(err))
		return err
	}
	s.logger.Debug(what, zap.Any("value", value))
	return nil
}

func (s *Shell) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Shell) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

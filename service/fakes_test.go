package service

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/garvazsof/MVC/core"
	"github.com/garvazsof/MVC/ports"
)

const testAddress = "0xD8532152a3F66bD590F29ce711C8ecCa5542325b"

type fakeProvider struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]interface{}
	closed    bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{responses: map[string]interface{}{
		"eth_chainId":     "0x5",
		"eth_accounts":    []common.Address{common.HexToAddress(testAddress)},
		"eth_getBalance":  "0xde0b6b3a7640000",
		"personal_sign":   "0xdeadbeef",
		"eth_private_key": "4c0883a69102937d6231471b5dbb6204fe512961708279f8b1a3b6b1e8a0d3a1",
	}}
}

func (p *fakeProvider) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	p.mu.Lock()
	p.calls = append(p.calls, method)
	resp, ok := p.responses[method]
	p.mu.Unlock()

	if !ok {
		return core.ErrUnsupportedMethod
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

func (p *fakeProvider) Backend() ports.ChainBackend                       { return nil }
func (p *fakeProvider) Signer(context.Context) (*bind.TransactOpts, error) { return nil, nil }

func (p *fakeProvider) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeAuth struct {
	mu         sync.Mutex
	initErr     error
	initStarted chan struct{}
	initBlock   chan struct{} // Init waits on it or on ctx when set
	userInfoErr error
	connectErr  error
	logoutErr  error
	restored   ports.ChainProvider
	provider   ports.ChainProvider
	inits      int
	connects   int
	connected  bool
	closed     bool
}

func (a *fakeAuth) Init(ctx context.Context) error {
	a.mu.Lock()
	a.inits++
	started, block := a.initStarted, a.initBlock
	a.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initErr
}

func (a *fakeAuth) Connect(ctx context.Context, creds core.Credentials) (ports.ChainProvider, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connects++
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	a.connected = true
	return a.provider, nil
}

func (a *fakeAuth) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	return a.logoutErr
}

func (a *fakeAuth) UserInfo(ctx context.Context) (*core.UserProfile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, core.ErrNotConnected
	}
	if a.userInfoErr != nil {
		return nil, a.userInfoErr
	}
	return &core.UserProfile{Address: testAddress, Verifier: "private_key"}, nil
}

func (a *fakeAuth) Provider() ports.ChainProvider {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.restored
}

func (a *fakeAuth) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}

func (a *fakeAuth) failUserInfo(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userInfoErr = err
}

func (a *fakeAuth) isConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *fakeAuth) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

type mintCall struct {
	recipient common.Address
	uri       string
}

type fakeContract struct {
	mu      sync.Mutex
	mints   []mintCall
	waited  []common.Hash
	mintErr error
	waitErr error
	block   chan struct{} // SafeMint waits on it when set
	started chan struct{}
	onWait  func()
	tokenID *big.Int

	// WaitMined signals waiting, then blocks on waitBlock or ctx when set
	waiting   chan struct{}
	waitBlock chan struct{}
}

func (c *fakeContract) SafeMint(ctx context.Context, recipient common.Address, uri string) (*types.Transaction, error) {
	c.mu.Lock()
	c.mints = append(c.mints, mintCall{recipient: recipient, uri: uri})
	nonce := uint64(len(c.mints))
	c.mu.Unlock()

	if c.started != nil {
		close(c.started)
	}
	if c.block != nil {
		<-c.block
	}
	if c.mintErr != nil {
		return nil, c.mintErr
	}
	return types.NewTx(&types.LegacyTx{Nonce: nonce, To: &core.Video721Address}), nil
}

func (c *fakeContract) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if c.onWait != nil {
		c.onWait()
	}
	if c.waiting != nil {
		close(c.waiting)
	}
	if c.waitBlock != nil {
		select {
		case <-c.waitBlock:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	c.waited = append(c.waited, tx.Hash())
	c.mu.Unlock()

	if c.waitErr != nil {
		return nil, c.waitErr
	}
	return &types.Receipt{
		TxHash:      tx.Hash(),
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
	}, nil
}

func (c *fakeContract) TokenID(receipt *types.Receipt) *big.Int {
	return c.tokenID
}

func (c *fakeContract) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	return "", nil
}

type fakeFactory struct {
	mu       sync.Mutex
	contract *fakeContract
	binds    []core.ContractDescriptor
}

func (f *fakeFactory) Bind(provider ports.ChainProvider, desc core.ContractDescriptor) (ports.MintContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binds = append(f.binds, desc)
	return f.contract, nil
}

func (f *fakeFactory) bindCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.binds)
}

type logoutEvent struct {
	address string
	tokenID string
}

type fakeEvents struct {
	mu      sync.Mutex
	logouts []logoutEvent
	minted  []*core.MintReceipt
}

func (e *fakeEvents) PublishLogout(ctx context.Context, address string, tokenID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logouts = append(e.logouts, logoutEvent{address: address, tokenID: tokenID})
	return nil
}

func (e *fakeEvents) mintedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.minted)
}

func (e *fakeEvents) PublishMinted(ctx context.Context, sessionID string, receipt *core.MintReceipt) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.minted = append(e.minted, receipt)
	return nil
}

package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/garvazsof/MVC/ports"
	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// Diagnostics holds the fixed inputs of the diagnostic wallet operations
type Diagnostics struct {
	Destination common.Address  // SendTransaction recipient
	Amount      decimal.Decimal // SendTransaction value in ether
	Message     string          // SignMessage payload
}

// DefaultDiagnostics returns the stock diagnostic inputs
func DefaultDiagnostics() Diagnostics {
	return Diagnostics{
		Destination: common.HexToAddress("0x40e1c367Eca34250cAF1bc8330E9EddfD403fC56"),
		Amount:      decimal.RequireFromString("0.001"),
		Message:     "YOUR_MESSAGE",
	}
}

// Facade exposes wallet operations over a chain provider. It holds no state
// of its own and returns provider errors unchanged.
type Facade struct {
	provider     ports.ChainProvider
	diag         Diagnostics
	pollInterval time.Duration
}

// NewFacade wraps a provider
func NewFacade(provider ports.ChainProvider, diag Diagnostics) *Facade {
	return &Facade{
		provider:     provider,
		diag:         diag,
		pollInterval: time.Second,
	}
}

// ChainID returns the provider's chain id
func (f *Facade) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := f.provider.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return nil, err
	}
	return id.ToInt(), nil
}

// Accounts returns the connected accounts
func (f *Facade) Accounts(ctx context.Context) ([]common.Address, error) {
	var accs []common.Address
	if err := f.provider.CallContext(ctx, &accs, "eth_accounts"); err != nil {
		return nil, err
	}
	return accs, nil
}

// Balance returns the first account's balance in ether
func (f *Facade) Balance(ctx context.Context) (string, error) {
	from, err := f.account(ctx)
	if err != nil {
		return "", err
	}

	var wei hexutil.Big
	if err := f.provider.CallContext(ctx, &wei, "eth_getBalance", from, "latest"); err != nil {
		return "", err
	}
	return FormatEther(wei.ToInt()), nil
}

// SendTransaction sends the diagnostic amount to the diagnostic destination
// and waits for inclusion
func (f *Facade) SendTransaction(ctx context.Context) (*types.Receipt, error) {
	from, err := f.account(ctx)
	if err != nil {
		return nil, err
	}

	var hash common.Hash
	err = f.provider.CallContext(ctx, &hash, "eth_sendTransaction", map[string]interface{}{
		"from":  from,
		"to":    f.diag.Destination,
		"value": (*hexutil.Big)(ParseEther(f.diag.Amount)),
	})
	if err != nil {
		return nil, err
	}

	return f.waitReceipt(ctx, hash)
}

// SignMessage signs the diagnostic message with personal_sign
func (f *Facade) SignMessage(ctx context.Context) (string, error) {
	from, err := f.account(ctx)
	if err != nil {
		return "", err
	}

	var sig hexutil.Bytes
	if err := f.provider.CallContext(ctx, &sig, "personal_sign", hexutil.Encode([]byte(f.diag.Message)), from); err != nil {
		return "", err
	}
	return sig.String(), nil
}

// PrivateKey exports the connected account's key
func (f *Facade) PrivateKey(ctx context.Context) (string, error) {
	var key string
	if err := f.provider.CallContext(ctx, &key, "eth_private_key"); err != nil {
		return "", err
	}
	return key, nil
}

func (f *Facade) account(ctx context.Context) (common.Address, error) {
	accs, err := f.Accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accs) == 0 {
		return common.Address{}, fmt.Errorf("provider returned no accounts")
	}
	return accs[0], nil
}

func (f *Facade) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := f.provider.Backend().TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// FormatEther renders a wei amount in ether
func FormatEther(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -etherDecimals).String()
}

// ParseEther converts an ether amount to wei
func ParseEther(eth decimal.Decimal) *big.Int {
	return eth.Shift(etherDecimals).BigInt()
}

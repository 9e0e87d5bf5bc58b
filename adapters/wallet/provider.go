package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/garvazsof/MVC/core"
	"github.com/garvazsof/MVC/ports"
)

// Provider methods answered with the local key instead of the node
const (
	MethodAccounts        = "eth_accounts"
	MethodRequestAccounts = "eth_requestAccounts"
	MethodChainID         = "eth_chainId"
	MethodPersonalSign    = "personal_sign"
	MethodSign            = "eth_sign"
	MethodSendTransaction = "eth_sendTransaction"
	MethodPrivateKey      = "eth_private_key"
)

// TransactionArgs is the eth_sendTransaction request object
type TransactionArgs struct {
	From  *common.Address `json:"from,omitempty"`
	To    *common.Address `json:"to,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
	Nonce *hexutil.Uint64 `json:"nonce,omitempty"`
}

// SigningProvider is a chain provider that holds one private key.
// Account, signing and submission requests are served locally; everything
// else goes to the node untouched.
type SigningProvider struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	chainID *big.Int
	address common.Address

	mu  sync.RWMutex
	key *ecdsa.PrivateKey
}

var _ ports.ChainProvider = (*SigningProvider)(nil)

// NewSigningProvider binds a private key to a node connection
func NewSigningProvider(client *rpc.Client, chainID *big.Int, key *ecdsa.PrivateKey) *SigningProvider {
	return &SigningProvider{
		rpc:     client,
		eth:     ethclient.NewClient(client),
		chainID: new(big.Int).Set(chainID),
		address: crypto.PubkeyToAddress(key.PublicKey),
		key:     key,
	}
}

// Address returns the account the provider signs for
func (p *SigningProvider) Address() common.Address {
	return p.address
}

// CallContext performs a provider request
func (p *SigningProvider) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	switch method {
	case MethodAccounts, MethodRequestAccounts:
		if _, err := p.privateKey(); err != nil {
			return err
		}
		return assign(result, []common.Address{p.address})

	case MethodChainID:
		return assign(result, (*hexutil.Big)(p.chainID))

	case MethodPersonalSign:
		// personal_sign(data, address)
		if len(args) < 1 {
			return fmt.Errorf("%s: missing message", method)
		}
		if err := p.checkAccount(args, 1); err != nil {
			return err
		}
		sig, err := p.signText(args[0])
		if err != nil {
			return err
		}
		return assign(result, sig)

	case MethodSign:
		// eth_sign(address, data)
		if len(args) < 2 {
			return fmt.Errorf("%s: expected address and message", method)
		}
		if err := p.checkAccount(args, 0); err != nil {
			return err
		}
		sig, err := p.signText(args[1])
		if err != nil {
			return err
		}
		return assign(result, sig)

	case MethodSendTransaction:
		if len(args) < 1 {
			return fmt.Errorf("%s: missing transaction", method)
		}
		var txArgs TransactionArgs
		if err := convert(args[0], &txArgs); err != nil {
			return fmt.Errorf("%s: invalid transaction: %w", method, err)
		}
		hash, err := p.sendTransaction(ctx, txArgs)
		if err != nil {
			return err
		}
		return assign(result, hash)

	case MethodPrivateKey:
		key, err := p.privateKey()
		if err != nil {
			return err
		}
		return assign(result, common.Bytes2Hex(crypto.FromECDSA(key)))
	}

	return p.rpc.CallContext(ctx, result, method, args...)
}

// Backend exposes the node for typed contract calls
func (p *SigningProvider) Backend() ports.ChainBackend {
	return p.eth
}

// Signer returns transact options for the connected account
func (p *SigningProvider) Signer(ctx context.Context) (*bind.TransactOpts, error) {
	key, err := p.privateKey()
	if err != nil {
		return nil, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, p.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx

	return opts, nil
}

// Close forgets the key. The node connection belongs to the auth client.
func (p *SigningProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		p.key.D.SetInt64(0)
		p.key = nil
	}
}

func (p *SigningProvider) privateKey() (*ecdsa.PrivateKey, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.key == nil {
		return nil, core.ErrNotConnected
	}
	return p.key, nil
}

// checkAccount rejects requests naming an account other than ours
func (p *SigningProvider) checkAccount(args []interface{}, idx int) error {
	if len(args) <= idx || args[idx] == nil {
		return nil
	}

	var addr common.Address
	if err := convert(args[idx], &addr); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}
	if addr != p.address {
		return fmt.Errorf("unknown account %s", addr.Hex())
	}
	return nil
}

func (p *SigningProvider) signText(msg interface{}) (hexutil.Bytes, error) {
	key, err := p.privateKey()
	if err != nil {
		return nil, err
	}

	data, err := messageBytes(msg)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(accounts.TextHash(data), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	return sig, nil
}

func (p *SigningProvider) sendTransaction(ctx context.Context, args TransactionArgs) (common.Hash, error) {
	key, err := p.privateKey()
	if err != nil {
		return common.Hash{}, err
	}
	if args.From != nil && *args.From != p.address {
		return common.Hash{}, fmt.Errorf("unknown account %s", args.From.Hex())
	}

	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}

	var nonce uint64
	if args.Nonce != nil {
		nonce = uint64(*args.Nonce)
	} else {
		nonce, err = p.eth.PendingNonceAt(ctx, p.address)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to get account nonce: %w", err)
		}
	}

	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		gas, err = p.eth.EstimateGas(ctx, ethereum.CallMsg{
			From:  p.address,
			To:    args.To,
			Value: value,
			Data:  args.Data,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	head, err := p.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get head header: %w", err)
	}

	var tx *types.Transaction
	if head.BaseFee != nil {
		tip, err := p.eth.SuggestGasTipCap(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to get gas tip: %w", err)
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   p.chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        args.To,
			Value:     value,
			Data:      args.Data,
		})
	} else {
		gasPrice, err := p.eth.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
		}
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       args.To,
			Value:    value,
			Data:     args.Data,
		})
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(p.chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := p.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signed.Hash(), nil
}

// messageBytes accepts raw bytes, 0x-prefixed hex or plain text
func messageBytes(msg interface{}) ([]byte, error) {
	switch m := msg.(type) {
	case []byte:
		return m, nil
	case hexutil.Bytes:
		return m, nil
	case string:
		if strings.HasPrefix(m, "0x") {
			if b, err := hexutil.Decode(m); err == nil {
				return b, nil
			}
		}
		return []byte(m), nil
	default:
		return nil, fmt.Errorf("unsupported message type %T", msg)
	}
}

// assign stores value into result the way an RPC response would
func assign(result interface{}, value interface{}) error {
	if result == nil {
		return nil
	}
	return convert(value, result)
}

func convert(in interface{}, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/garvazsof/MVC/core"
	"github.com/garvazsof/MVC/ports"
)

type factory struct{}

// NewFactory returns a ContractFactory producing Video721 bindings
func NewFactory() ports.ContractFactory {
	return factory{}
}

// Bind parses the descriptor's ABI and binds it to the provider's backend
func (factory) Bind(provider ports.ChainProvider, desc core.ContractDescriptor) (ports.MintContract, error) {
	return NewVideo721Binding(provider, desc)
}

// Video721Binding calls a deployed Video721 contract as the connected account
type Video721Binding struct {
	address  common.Address
	abi      abi.ABI
	provider ports.ChainProvider
	contract *bind.BoundContract
}

var _ ports.MintContract = (*Video721Binding)(nil)

// NewVideo721Binding creates a binding for desc
func NewVideo721Binding(provider ports.ChainProvider, desc core.ContractDescriptor) (*Video721Binding, error) {
	parsed, err := abi.JSON(strings.NewReader(desc.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", desc.Name, err)
	}

	backend := provider.Backend()
	return &Video721Binding{
		address:  desc.Address,
		abi:      parsed,
		provider: provider,
		contract: bind.NewBoundContract(desc.Address, parsed, backend, backend, backend),
	}, nil
}

// SafeMint submits safeMint(recipient, uri)
func (b *Video721Binding) SafeMint(ctx context.Context, recipient common.Address, uri string) (*types.Transaction, error) {
	opts, err := b.provider.Signer(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := b.contract.Transact(opts, "safeMint", recipient, uri)
	if err != nil {
		return nil, fmt.Errorf("safeMint: %w", err)
	}
	return tx, nil
}

// WaitMined blocks until tx is included. A failed receipt is an error.
func (b *Video721Binding) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, b.provider.Backend(), tx)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("%w: %s", core.ErrTransactionReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

// TokenID reads the token id from the contract's Transfer log
func (b *Video721Binding) TokenID(receipt *types.Receipt) *big.Int {
	if receipt == nil {
		return nil
	}

	transfer := b.abi.Events["Transfer"].ID
	for _, log := range receipt.Logs {
		// Transfer(from, to, tokenId) has every argument indexed
		if log.Address != b.address || len(log.Topics) < 4 || log.Topics[0] != transfer {
			continue
		}
		return new(big.Int).SetBytes(log.Topics[3].Bytes())
	}
	return nil
}

// TokenURI returns the metadata uri of a minted token
func (b *Video721Binding) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	var out []interface{}
	if err := b.contract.Call(&bind.CallOpts{Context: ctx}, &out, "tokenURI", tokenID); err != nil {
		return "", fmt.Errorf("call tokenURI: %w", err)
	}
	if len(out) != 1 {
		return "", fmt.Errorf("unexpected outputs: %d", len(out))
	}
	uri, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("tokenURI not string")
	}
	return uri, nil
}

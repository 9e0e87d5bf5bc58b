package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/garvazsof/MVC/core"
)

// MintContract is a contract-call object bound to the connected signer
type MintContract interface {
	SafeMint(ctx context.Context, recipient common.Address, uri string) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

	// TokenID extracts the minted token id from a receipt, or nil
	TokenID(receipt *types.Receipt) *big.Int
	TokenURI(ctx context.Context, tokenID *big.Int) (string, error)
}

// ContractFactory materializes a MintContract for a provider
type ContractFactory interface {
	Bind(provider ChainProvider, desc core.ContractDescriptor) (MintContract, error)
}

package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/garvazsof/MVC/core"
)

// AuthClient is the wallet/auth provider a shell owns for its lifetime
type AuthClient interface {
	// Init prepares the client. It runs once; later calls return the first result.
	Init(ctx context.Context) error

	// Connect authenticates the user and returns a signing-capable provider
	Connect(ctx context.Context, creds core.Credentials) (ChainProvider, error)

	// Logout ends the wallet session
	Logout(ctx context.Context) error

	// UserInfo describes the connected user
	UserInfo(ctx context.Context) (*core.UserProfile, error)

	// Provider returns the provider of a session restored during Init, or nil
	Provider() ChainProvider

	// Close releases the node connection
	Close()
}

// AuthClientFactory creates the auth client of a newly mounted shell
type AuthClientFactory func() AuthClient

// ChainBackend is what bound contract calls and receipt polling need
type ChainBackend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// ChainProvider is an authenticated connection to a chain node
type ChainProvider interface {
	// CallContext performs a JSON-RPC request (eth_chainId, eth_accounts,
	// eth_getBalance, eth_sendTransaction, personal_sign, eth_private_key, ...)
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error

	// Backend exposes the node for typed contract calls
	Backend() ChainBackend

	// Signer returns transact options bound to the connected account
	Signer(ctx context.Context) (*bind.TransactOpts, error)

	// Close releases the connection and forgets key material
	Close()
}

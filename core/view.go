package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ViewState is the state of a mounted shell. It depends only on whether a
// chain provider is present.
type ViewState int

const (
	LoggedOut ViewState = iota
	LoggedIn
)

func (s ViewState) String() string {
	switch s {
	case LoggedIn:
		return "logged_in"
	default:
		return "logged_out"
	}
}

// MarshalText renders the state by name in JSON bodies
func (s ViewState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Action is a button the current view offers
type Action string

const (
	ActionLogin  Action = "login"
	ActionMint   Action = "mint"
	ActionLogout Action = "logout"
)

// View is what a client renders for a shell
type View struct {
	State   ViewState `json:"state"`
	Title   string    `json:"title"`
	Footer  string    `json:"footer"`
	Splash  string    `json:"splash,omitempty"`   // logged out only
	MintURI *string   `json:"mint_uri,omitempty"` // logged in only
	Ready   bool      `json:"ready"`             // auth client initialized
	Actions []Action  `json:"actions"`
}

// MintReceipt is the outcome of an included mint transaction
type MintReceipt struct {
	TxHash      common.Hash    `json:"tx_hash"`
	BlockNumber *big.Int       `json:"block_number"`
	Recipient   common.Address `json:"recipient"`
	URI         string         `json:"uri"`
	ExplorerURL string         `json:"explorer_url"`
	TokenID     *big.Int       `json:"token_id,omitempty"`
}

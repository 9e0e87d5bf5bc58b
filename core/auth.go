package core

import "time"

// Credentials identify the wallet a user connects with.
// Either Address+Passphrase (keystore account) or PrivateKey is set.
type Credentials struct {
	Address    string // Ethereum address of a keystore account
	Passphrase string // Passphrase unlocking the keystore account
	PrivateKey string // Hex encoded private key, 0x prefix optional
}

// UserProfile describes the user behind a connected wallet
type UserProfile struct {
	Address  string    `json:"address"`
	Verifier string    `json:"verifier"`
	ClientID string    `json:"client_id"`
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email,omitempty"`
	LoginAt  time.Time `json:"login_at"`
}

// Session represents a mounted page session as carried in tokens
type Session struct {
	ID            string    // Identifier of the mounted shell
	Address       string    // Connected wallet address, empty while logged out
	IssuedAt      time.Time // When the tokens were issued
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}

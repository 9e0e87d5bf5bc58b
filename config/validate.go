package config

import (
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"github.com/garvazsof/MVC/core"
	"github.com/shopspring/decimal"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "chain.chain_id"
	Message string // e.g., "invalid hex quantity"
	Hint    string // e.g., "expected 0x-prefixed hex, like 0x5"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate returns every problem found in the configuration
func (c *Config) Validate() []error {
	var errs []error

	if c.ListenAddr == "" {
		errs = append(errs, ValidationError{Path: "listen_addr", Message: "must not be empty"})
	}

	if c.Chain.Namespace != core.ChainNamespaceEIP155 {
		errs = append(errs, ValidationError{
			Path:    "chain.namespace",
			Message: fmt.Sprintf("invalid value %q", c.Chain.Namespace),
			Hint:    "allowed values: eip155",
		})
	}
	if _, err := c.Chain.ChainIDBig(); err != nil {
		errs = append(errs, ValidationError{
			Path:    "chain.chain_id",
			Message: err.Error(),
			Hint:    "expected 0x-prefixed hex, like 0x5",
		})
	}
	if u, err := url.Parse(c.Chain.RPCTarget); err != nil || u.Scheme == "" {
		errs = append(errs, ValidationError{
			Path:    "chain.rpc_target",
			Message: fmt.Sprintf("invalid url %q", c.Chain.RPCTarget),
			Hint:    "expected http(s):// or ws(s):// endpoint",
		})
	}

	errs = append(errs, validateAddress("contract.address", c.Contract.Address)...)
	errs = append(errs, validateAddress("contract.recipient", c.Contract.Recipient)...)
	errs = append(errs, validateAddress("diagnostics.destination", c.Diagnostics.Destination)...)

	if amount, err := decimal.NewFromString(c.Diagnostics.Amount); err != nil || amount.IsNegative() {
		errs = append(errs, ValidationError{
			Path:    "diagnostics.amount",
			Message: fmt.Sprintf("invalid value %q", c.Diagnostics.Amount),
			Hint:    "expected a non-negative ether amount, like 0.001",
		})
	}

	if c.Tokens.AccessTTL <= 0 {
		errs = append(errs, ValidationError{Path: "tokens.access_ttl", Message: "must be positive"})
	}
	if c.Tokens.RefreshTTL < c.Tokens.AccessTTL {
		errs = append(errs, ValidationError{Path: "tokens.refresh_ttl", Message: "must not be shorter than access_ttl"})
	}
	if c.Sessions.IdleTTL <= 0 {
		errs = append(errs, ValidationError{Path: "sessions.idle_ttl", Message: "must be positive"})
	}
	if c.Sessions.InitTimeout <= 0 {
		errs = append(errs, ValidationError{Path: "sessions.init_timeout", Message: "must be positive"})
	}
	if c.Sessions.EvictInterval <= 0 {
		errs = append(errs, ValidationError{Path: "sessions.evict_interval", Message: "must be positive"})
	}
	if c.Sessions.MineTimeout <= 0 {
		errs = append(errs, ValidationError{Path: "sessions.mine_timeout", Message: "must be positive"})
	}
	if c.Sessions.MaxMounted < 0 {
		errs = append(errs, ValidationError{
			Path:    "sessions.max_mounted",
			Message: "must not be negative",
			Hint:    "use 0 to disable the cap",
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("invalid value %q", c.Logging.Level),
			Hint:    "allowed values: debug, info, warn, error",
		})
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, ValidationError{
			Path:    "logging.format",
			Message: fmt.Sprintf("invalid value %q", c.Logging.Format),
			Hint:    "allowed values: json, console",
		})
	}

	return errs
}

func validateAddress(path, addr string) []error {
	if !common.IsHexAddress(addr) {
		return []error{ValidationError{
			Path:    path,
			Message: fmt.Sprintf("invalid address %q", addr),
			Hint:    "expected 0x-prefixed 20-byte hex",
		}}
	}
	return nil
}

package http

import (
	"errors"
	"net/http"

	"github.com/garvazsof/MVC/core"
	"github.com/garvazsof/MVC/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandlers contains HTTP handlers for page sessions and wallet auth
type SessionHandlers struct {
	sessions *service.SessionService
	logger   *zap.Logger
}

// NewSessionHandlers creates new session handlers
func NewSessionHandlers(sessions *service.SessionService, logger *zap.Logger) *SessionHandlers {
	return &SessionHandlers{
		sessions: sessions,
		logger:   logger,
	}
}

// Mount creates a page session
func (h *SessionHandlers) Mount(c *gin.Context) {
	shell, tokens, err := h.sessions.Mount(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to create session")
		return
	}

	h.tokens(c, http.StatusCreated, tokens, shell.View())
}

// Unmount drops the caller's page session
func (h *SessionHandlers) Unmount(c *gin.Context) {
	if err := h.sessions.Unmount(c.Request.Context(), sessionFrom(c)); err != nil {
		h.fail(c, err, "Failed to drop session")
		return
	}

	c.Status(http.StatusNoContent)
}

// Login connects the wallet of the caller's page session
func (h *SessionHandlers) Login(c *gin.Context) {
	var req struct {
		Address    string `json:"address"`
		Passphrase string `json:"passphrase"`
		PrivateKey string `json:"private_key"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	tokens, err := h.sessions.Login(c.Request.Context(), sessionFrom(c), core.Credentials{
		Address:    req.Address,
		Passphrase: req.Passphrase,
		PrivateKey: req.PrivateKey,
	})
	if err != nil {
		h.fail(c, err, "Authentication failed")
		return
	}

	h.tokens(c, http.StatusOK, tokens, shellFrom(c).View())
}

// Logout disconnects the wallet of the caller's page session
func (h *SessionHandlers) Logout(c *gin.Context) {
	tokens, err := h.sessions.Logout(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.fail(c, err, "Failed to logout")
		return
	}

	h.tokens(c, http.StatusOK, tokens, shellFrom(c).View())
}

// Refresh handles token refresh
func (h *SessionHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	tokens, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err, "Failed to refresh tokens")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(h.sessions.AccessTTL().Seconds()),
	})
}

func (h *SessionHandlers) tokens(c *gin.Context, status int, tokens service.Tokens, view core.View) {
	c.JSON(status, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(h.sessions.AccessTTL().Seconds()),
		"view":          view,
	})
}

func (h *SessionHandlers) fail(c *gin.Context, err error, fallback string) {
	respondError(c, h.logger, err, fallback)
}

// AppHandlers serve the mint page of a mounted shell
type AppHandlers struct {
	logger *zap.Logger
}

// NewAppHandlers creates new app handlers
func NewAppHandlers(logger *zap.Logger) *AppHandlers {
	return &AppHandlers{logger: logger}
}

// View renders the current view
func (h *AppHandlers) View(c *gin.Context) {
	c.JSON(http.StatusOK, shellFrom(c).View())
}

// SetURI replaces the mint input
func (h *AppHandlers) SetURI(c *gin.Context) {
	var req struct {
		URI *string `json:"uri" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	shell := shellFrom(c)
	shell.SetURI(*req.URI)
	c.JSON(http.StatusOK, shell.View())
}

// Mint mints the current input and waits for inclusion
func (h *AppHandlers) Mint(c *gin.Context) {
	receipt, err := shellFrom(c).Mint(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Mint failed")
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// DebugHandlers expose the wallet diagnostics of a mounted shell
type DebugHandlers struct {
	logger *zap.Logger
}

// NewDebugHandlers creates new debug handlers
func NewDebugHandlers(logger *zap.Logger) *DebugHandlers {
	return &DebugHandlers{logger: logger}
}

// UserInfo describes the connected user
func (h *DebugHandlers) UserInfo(c *gin.Context) {
	user, err := shellFrom(c).UserInfo(c.Request.Context())
	h.respond(c, user, err)
}

// ChainID returns the connected chain id
func (h *DebugHandlers) ChainID(c *gin.Context) {
	id, err := shellFrom(c).ChainID(c.Request.Context())
	if err != nil {
		h.respond(c, nil, err)
		return
	}
	h.respond(c, gin.H{"chain_id": id.String()}, nil)
}

// Accounts returns the connected accounts
func (h *DebugHandlers) Accounts(c *gin.Context) {
	accs, err := shellFrom(c).Accounts(c.Request.Context())
	h.respond(c, gin.H{"accounts": accs}, err)
}

// Balance returns the connected account's balance in ether
func (h *DebugHandlers) Balance(c *gin.Context) {
	balance, err := shellFrom(c).Balance(c.Request.Context())
	h.respond(c, gin.H{"balance": balance}, err)
}

// SendTransaction sends the diagnostic transfer
func (h *DebugHandlers) SendTransaction(c *gin.Context) {
	receipt, err := shellFrom(c).SendTransaction(c.Request.Context())
	h.respond(c, receipt, err)
}

// SignMessage signs the diagnostic message
func (h *DebugHandlers) SignMessage(c *gin.Context) {
	sig, err := shellFrom(c).SignMessage(c.Request.Context())
	h.respond(c, gin.H{"signature": sig}, err)
}

// PrivateKey exports the connected key
func (h *DebugHandlers) PrivateKey(c *gin.Context) {
	key, err := shellFrom(c).PrivateKey(c.Request.Context())
	h.respond(c, gin.H{"private_key": key}, err)
}

func (h *DebugHandlers) respond(c *gin.Context, body interface{}, err error) {
	if err != nil {
		respondError(c, h.logger, err, "Request failed")
		return
	}
	c.JSON(http.StatusOK, body)
}

// respondError maps domain errors to status codes. Unclassified errors come
// from the node or the wallet and are reported as a bad gateway.
func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	status := http.StatusBadGateway
	msg := err.Error()

	switch {
	case errors.Is(err, core.ErrInvalidToken):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrTokenExpired), errors.Is(err, core.ErrTokenInvalidated),
		errors.Is(err, core.ErrAuthFailed):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrClosed):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrEmptyURI):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrProviderMissing), errors.Is(err, core.ErrNotConnected),
		errors.Is(err, core.ErrMintInFlight):
		status = http.StatusConflict
	case errors.Is(err, core.ErrNotInitialized), errors.Is(err, core.ErrInitFailed),
		errors.Is(err, core.ErrTooManySessions):
		status = http.StatusServiceUnavailable
	case errors.Is(err, core.ErrTransactionReverted):
		status = http.StatusUnprocessableEntity
	default:
		logger.Error(fallback, zap.Error(err))
		msg = fallback + ": " + err.Error()
	}

	c.JSON(status, gin.H{"error": msg})
}

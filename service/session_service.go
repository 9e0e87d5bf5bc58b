package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garvazsof/MVC/core"
	"github.com/garvazsof/MVC/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tokens is the bearer pair handed to a page session
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionOption customizes a SessionService
type SessionOption func(*SessionService)

// WithTokenTTLs overrides the access and refresh token lifetimes
func WithTokenTTLs(access, refresh time.Duration) SessionOption {
	return func(s *SessionService) {
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// WithIdleTTL sets how long an untouched shell stays mounted
func WithIdleTTL(ttl time.Duration) SessionOption {
	return func(s *SessionService) {
		s.idleTTL = ttl
	}
}

// WithInitTimeout bounds the background auth client initialization
func WithInitTimeout(timeout time.Duration) SessionOption {
	return func(s *SessionService) {
		s.initTimeout = timeout
	}
}

// WithMaxMounted caps the number of live shells; zero means no cap
func WithMaxMounted(n int) SessionOption {
	return func(s *SessionService) {
		s.maxMounted = n
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *SessionService) {
		s.logger = logger
	}
}

// SessionService mounts shells and issues the tokens addressing them
type SessionService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	eventPub  ports.EventPublisher
	newAuth   ports.AuthClientFactory
	contracts ports.ContractFactory
	shellCfg  ShellConfig
	logger    *zap.Logger

	accessTTL   time.Duration
	refreshTTL  time.Duration
	idleTTL     time.Duration
	initTimeout time.Duration
	maxMounted  int
	now         func() time.Time

	mu     sync.RWMutex
	shells map[string]*Shell
}

// NewSessionService creates a new session service
func NewSessionService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	eventPub ports.EventPublisher,
	newAuth ports.AuthClientFactory,
	contracts ports.ContractFactory,
	shellCfg ShellConfig,
	opts ...SessionOption,
) *SessionService {
	s := &SessionService{
		tokenizer:   tokenizer,
		store:       store,
		eventPub:    eventPub,
		newAuth:     newAuth,
		contracts:   contracts,
		shellCfg:    shellCfg,
		logger:      zap.NewNop(),
		accessTTL:   5 * time.Minute,
		refreshTTL:  24 * time.Hour,
		idleTTL:     30 * time.Minute,
		initTimeout: 30 * time.Second,
		now:         time.Now,
		shells:      make(map[string]*Shell),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("sessions")
	return s
}

// Mount creates a shell for a new page session and starts initializing its
// auth client in the background
func (s *SessionService) Mount(ctx context.Context) (*Shell, Tokens, error) {
	id := uuid.New().String()

	tokens, err := s.issue(&core.Session{ID: id})
	if err != nil {
		return nil, Tokens{}, err
	}

	s.mu.Lock()
	if s.maxMounted > 0 && len(s.shells) >= s.maxMounted {
		s.mu.Unlock()
		s.logger.Warn(core.ErrTooManySessions.Error(), zap.Int("max_mounted", s.maxMounted))
		return nil, Tokens{}, core.ErrTooManySessions
	}
	shell := NewShell(id, s.shellCfg, s.newAuth(), s.contracts, s.eventPub, s.logger)
	s.shells[id] = shell
	s.mu.Unlock()

	go func() {
		initCtx, cancel := context.WithTimeout(context.Background(), s.initTimeout)
		defer cancel()
		_ = shell.Init(initCtx)
	}()

	s.logger.Info("session mounted", zap.String("session_id", id))
	return shell, tokens, nil
}

// Lookup returns the shell of a page session
func (s *SessionService) Lookup(id string) (*Shell, error) {
	s.mu.RLock()
	shell, ok := s.shells[id]
	s.mu.RUnlock()

	if !ok {
		return nil, core.ErrSessionNotFound
	}
	shell.touch(s.now())
	return shell, nil
}

// ValidateAccessToken resolves an access token to its live session
func (s *SessionService) ValidateAccessToken(ctx context.Context, token string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(token)
	if err != nil {
		return nil, err
	}

	invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, core.ErrTokenInvalidated
	}

	if _, err := s.Lookup(session.ID); err != nil {
		return nil, err
	}

	return session, nil
}

// Login connects the wallet of a page session and reissues its tokens bound
// to the connected address
func (s *SessionService) Login(ctx context.Context, session *core.Session, creds core.Credentials) (Tokens, error) {
	shell, err := s.Lookup(session.ID)
	if err != nil {
		return Tokens{}, err
	}

	if err := shell.Login(ctx, creds); err != nil {
		return Tokens{}, err
	}

	user, err := shell.UserInfo(ctx)
	if err != nil {
		// roll back to the logged-out view
		_ = shell.Logout(ctx)
		return Tokens{}, err
	}

	return s.rotate(ctx, session, user.Address)
}

// Logout disconnects the wallet of a page session. The session stays mounted
// in the logged-out view with fresh tokens.
func (s *SessionService) Logout(ctx context.Context, session *core.Session) (Tokens, error) {
	shell, err := s.Lookup(session.ID)
	if err != nil {
		return Tokens{}, err
	}

	if err := shell.Logout(ctx); err != nil {
		if errors.Is(err, core.ErrNotInitialized) {
			return Tokens{}, err
		}
		s.logger.Warn("wallet logout reported an error", zap.String("session_id", session.ID), zap.Error(err))
	}

	tokens, err := s.rotate(ctx, session, "")
	if err != nil {
		return Tokens{}, err
	}

	if session.Address != "" {
		if err := s.eventPub.PublishLogout(ctx, session.Address, session.RefreshID); err != nil {
			s.logger.Warn("failed to publish logout event", zap.Error(err))
		}
	}

	return tokens, nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshToken)
	if err != nil {
		return Tokens{}, fmt.Errorf("invalid refresh token: %w", err)
	}

	if s.now().After(session.RefreshExpiry) {
		return Tokens{}, core.ErrTokenExpired
	}

	invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return Tokens{}, core.ErrTokenInvalidated
	}

	if _, err := s.Lookup(session.ID); err != nil {
		return Tokens{}, err
	}

	return s.rotate(ctx, session, session.Address)
}

// Unmount drops a page session and its shell
func (s *SessionService) Unmount(ctx context.Context, session *core.Session) error {
	s.mu.Lock()
	shell, ok := s.shells[session.ID]
	delete(s.shells, session.ID)
	s.mu.Unlock()

	if !ok {
		return core.ErrSessionNotFound
	}
	shell.Close()

	if err := s.invalidate(ctx, session); err != nil {
		return err
	}

	s.logger.Info("session unmounted", zap.String("session_id", session.ID))
	return nil
}

// EvictIdle unmounts shells untouched for longer than the idle TTL
func (s *SessionService) EvictIdle(now time.Time) int {
	s.mu.Lock()
	var evicted []*Shell
	for id, shell := range s.shells {
		if now.Sub(shell.idleSince()) > s.idleTTL {
			evicted = append(evicted, shell)
			delete(s.shells, id)
		}
	}
	s.mu.Unlock()

	for _, shell := range evicted {
		shell.Close()
		s.logger.Info("session evicted", zap.String("session_id", shell.ID()))
	}
	return len(evicted)
}

// RunEviction evicts idle shells every interval until ctx is done
func (s *SessionService) RunEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.EvictIdle(t)
		}
	}
}

// AccessTTL is the lifetime of issued access tokens
func (s *SessionService) AccessTTL() time.Duration {
	return s.accessTTL
}

// Mounted returns the number of live shells
func (s *SessionService) Mounted() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shells)
}

// Close unmounts every shell
func (s *SessionService) Close() {
	s.mu.Lock()
	shells := s.shells
	s.shells = make(map[string]*Shell)
	s.mu.Unlock()

	for _, shell := range shells {
		shell.Close()
	}
}

// rotate invalidates the session's current refresh token and issues a new
// pair for the same page session
func (s *SessionService) rotate(ctx context.Context, session *core.Session, address string) (Tokens, error) {
	if err := s.invalidate(ctx, session); err != nil {
		return Tokens{}, err
	}
	return s.issue(&core.Session{ID: session.ID, Address: address})
}

func (s *SessionService) invalidate(ctx context.Context, session *core.Session) error {
	if session.RefreshID == "" {
		return nil
	}

	// Expired tokens are recorded for an hour
	remaining := time.Hour
	if !session.RefreshExpiry.IsZero() && s.now().Before(session.RefreshExpiry) {
		remaining = session.RefreshExpiry.Sub(s.now())
	} else if session.RefreshExpiry.IsZero() {
		remaining = s.refreshTTL
	}

	if err := s.store.InvalidateToken(ctx, session.RefreshID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

func (s *SessionService) issue(session *core.Session) (Tokens, error) {
	now := s.now()
	session.IssuedAt = now
	session.AccessExpiry = now.Add(s.accessTTL)
	session.RefreshExpiry = now.Add(s.refreshTTL)
	session.RefreshID = uuid.New().String()

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return Tokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

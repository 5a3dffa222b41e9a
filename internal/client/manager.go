// Package client keeps a Telegram Mini App session on the consuming side:
// it caches the issued session, refreshes it ahead of expiry and coalesces
// concurrent verifications into a single request.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"diamond_tma/internal/domain"
	"diamond_tma/internal/logger"
	"diamond_tma/internal/ratelimit"
	"diamond_tma/internal/ws"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshThreshold = time.Hour
	DefaultSessionMaxAge    = 24 * time.Hour
	DefaultMaxAttempts      = 3
	DefaultBaseBackoff      = 200 * time.Millisecond

	signInKey = "sign_in"
)

var (
	ErrClosed    = errors.New("client: session manager closed")
	ErrNoSession = errors.New("client: no local session")
)

type State int

const (
	StateUnauthenticated State = iota
	StateVerifying
	StateAuthenticated
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	case StateDenied:
		return "denied"
	default:
		return "unauthenticated"
	}
}

// DenialReason tells callers whether to offer a retry.
type DenialReason string

const (
	// ReasonEnvironmentUnavailable: the app was not opened through Telegram.
	ReasonEnvironmentUnavailable DenialReason = "environment_unavailable"
	// ReasonRejected: the server refused the init data; only fresh init data helps.
	ReasonRejected DenialReason = "rejected"
	// ReasonTransient: network or server trouble outlasted the retry budget.
	ReasonTransient DenialReason = "transient"
)

// DeniedError is returned when verification settles in StateDenied.
type DeniedError struct {
	Reason DenialReason
	Err    error
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("client: session denied (%s): %v", e.Reason, e.Err)
}

func (e *DeniedError) Unwrap() error { return e.Err }

type Options struct {
	// BaseURL is the server root, e.g. https://api.example.com.
	BaseURL string
	Host    HostEnvironment
	// Store defaults to an in-memory store.
	Store SessionStore
	// Guard throttles sign-in attempts; defaults to an in-process sliding window.
	Guard          ratelimit.Guard
	SignInAttempts int
	SignInWindow   time.Duration

	Timeout          time.Duration
	RefreshThreshold time.Duration
	// SessionMaxAge bounds how long a cached session is trusted regardless
	// of the token's own expiry.
	SessionMaxAge time.Duration
	MaxAttempts   int
	BaseBackoff   time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// SessionManager owns the local session of one client instance.
type SessionManager struct {
	api   *APIClient
	host  HostEnvironment
	store SessionStore
	guard ratelimit.Guard
	opts  Options
	log   *slog.Logger
	now   func() time.Time

	group  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	state  State
	denied *DeniedError
	closed bool
}

func New(opts Options) (*SessionManager, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("client: base url is required")
	}
	if opts.Host == nil {
		return nil, errors.New("client: host environment is required")
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Guard == nil {
		opts.Guard = ratelimit.NewSlidingWindow()
	}
	if opts.SignInAttempts <= 0 {
		opts.SignInAttempts = ratelimit.DefaultSignInAttempts
	}
	if opts.SignInWindow <= 0 {
		opts.SignInWindow = ratelimit.DefaultSignInWindow
	}
	if opts.RefreshThreshold <= 0 {
		opts.RefreshThreshold = DefaultRefreshThreshold
	}
	if opts.SessionMaxAge <= 0 {
		opts.SessionMaxAge = DefaultSessionMaxAge
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = DefaultBaseBackoff
	}
	if opts.Logger == nil {
		opts.Logger = logger.Get()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SessionManager{
		api:    NewAPIClient(opts.BaseURL, opts.Timeout),
		host:   opts.Host,
		store:  opts.Store,
		guard:  opts.Guard,
		opts:   opts,
		log:    opts.Logger.With("component", "session_manager"),
		now:    opts.Now,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Initialize restores a stored session and verifies when none is usable.
func (m *SessionManager) Initialize(ctx context.Context) error {
	_, err := m.CurrentUser(ctx)
	return err
}

// CurrentUser returns the identity of a usable session.
func (m *SessionManager) CurrentUser(ctx context.Context) (domain.Identity, error) {
	sess, err := m.Session(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	return sess.User, nil
}

// Session returns the cached session when it has more than the refresh
// threshold left. Otherwise it verifies fresh init data; concurrent callers
// share the same verification.
func (m *SessionManager) Session(ctx context.Context) (*LocalSession, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}

	if sess := m.usable(ctx); sess != nil {
		m.setState(StateAuthenticated)
		return sess, nil
	}

	ch := m.group.DoChan(signInKey, func() (any, error) {
		// a flight that ended after this caller read the store may have
		// already saved a fresh session
		if sess := m.usable(m.ctx); sess != nil {
			return sess, nil
		}
		return m.verify(m.ctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cp := *res.Val.(*LocalSession)
		return &cp, nil
	}
}

func (m *SessionManager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Denial returns the error that put the manager in StateDenied, if it is there.
func (m *SessionManager) Denial() *DeniedError {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateDenied {
		return nil
	}
	return m.denied
}

// SignOut drops the local session and revokes it on the server. The server
// call is best-effort; the local session is gone either way.
func (m *SessionManager) SignOut(ctx context.Context) error {
	sess, _ := m.store.Load(ctx)
	if err := m.clear(ctx); err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	if err := m.api.Logout(ctx, sess.Token); err != nil {
		m.log.Warn("server logout failed", "error", err, "reason", domain.ReasonOf(err))
	}
	return nil
}

// Close stops in-flight verifications and revocation watchers.
func (m *SessionManager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	return nil
}

// WatchRevocations listens on the server's revocation feed and clears the
// local session once it is revoked. It returns domain.ErrTokenRevoked in
// that case, or the error that ended the connection.
func (m *SessionManager) WatchRevocations(ctx context.Context) error {
	if m.isClosed() {
		return ErrClosed
	}
	sess := m.cached(ctx)
	if sess == nil {
		return ErrNoSession
	}
	jti, err := tokenID(sess.Token)
	if err != nil {
		return err
	}
	wsURL, err := m.feedURL(sess.Token)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.ctx, cancel)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial revocation feed: %v", domain.ErrNetworkOrTimeout, err)
	}
	defer conn.Close()
	stopClose := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopClose()

	for {
		var msg ws.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: revocation feed: %v", domain.ErrNetworkOrTimeout, err)
		}
		if msg.Type != ws.MsgSessionRevoked {
			continue
		}
		if msg.Current || msg.JTI == jti {
			m.log.Info("session revoked by server", "jti", msg.JTI)
			if err := m.clear(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			return domain.ErrTokenRevoked
		}
		m.log.Debug("another session of this user was revoked", "jti", msg.JTI)
	}
}

func (m *SessionManager) verify(ctx context.Context) (*LocalSession, error) {
	initData, err := m.host.InitData(ctx)
	if err == nil && strings.TrimSpace(initData) == "" {
		err = domain.ErrEnvironmentUnavailable
	}
	if err != nil {
		if !errors.Is(err, domain.ErrEnvironmentUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrEnvironmentUnavailable, err)
		}
		return nil, m.deny(ReasonEnvironmentUnavailable, err)
	}

	allowed, err := m.guard.Allow(ctx, signInKey, m.opts.SignInAttempts, m.opts.SignInWindow)
	if err != nil {
		m.log.Warn("sign-in throttle unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		return nil, domain.ErrThrottled
	}

	m.setState(StateVerifying)

	resp, err := m.verifyWithRetry(ctx, initData)
	if err != nil {
		return nil, m.deny(reasonFor(err), err)
	}

	sess := &LocalSession{
		User:      resp.UserData,
		Token:     resp.JWTToken,
		CreatedAt: m.now(),
		ExpiresAt: time.Unix(resp.ExpiresAt, 0),
	}
	if err := checkIntegrity(sess); err != nil {
		return nil, m.deny(ReasonRejected, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err))
	}
	if err := m.store.Save(ctx, sess); err != nil {
		m.setState(StateUnauthenticated)
		return nil, fmt.Errorf("client: save session: %w", err)
	}

	m.setState(StateAuthenticated)
	m.log.Info("session verified", "telegram_id", sess.User.TelegramID, "expires_at", sess.ExpiresAt)
	return sess, nil
}

// verifyWithRetry retries network failures with exponential backoff.
// Rejections are returned at once.
func (m *SessionManager) verifyWithRetry(ctx context.Context, initData string) (*VerifyResponse, error) {
	backoff := m.opts.BaseBackoff

	for attempt := 1; ; attempt++ {
		resp, err := m.api.Verify(ctx, initData)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, domain.ErrNetworkOrTimeout) || attempt >= m.opts.MaxAttempts {
			return nil, err
		}

		m.log.Warn("verification attempt failed",
			"attempt", attempt, "max_attempts", m.opts.MaxAttempts, "backoff", backoff, "error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

// usable returns the cached session if it has more than the refresh
// threshold left.
func (m *SessionManager) usable(ctx context.Context) *LocalSession {
	sess := m.cached(ctx)
	if sess == nil || sess.Remaining(m.now(), m.opts.SessionMaxAge) <= m.opts.RefreshThreshold {
		return nil
	}
	return sess
}

// cached returns a stored, intact and unexpired session. Anything else is
// cleared from the store.
func (m *SessionManager) cached(ctx context.Context) *LocalSession {
	sess, err := m.store.Load(ctx)
	if err != nil {
		m.log.Warn("failed to load local session", "error", err)
		return nil
	}
	if sess == nil {
		return nil
	}

	if err := checkIntegrity(sess); err != nil {
		m.log.Warn("local session failed integrity check, clearing", "error", err)
		_ = m.clear(ctx)
		return nil
	}
	if sess.Remaining(m.now(), m.opts.SessionMaxAge) <= 0 {
		_ = m.clear(ctx)
		return nil
	}
	return sess
}

func (m *SessionManager) clear(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("client: clear session: %w", err)
	}
	m.setState(StateUnauthenticated)
	return nil
}

func (m *SessionManager) deny(reason DenialReason, err error) error {
	denied := &DeniedError{Reason: reason, Err: err}

	m.mu.Lock()
	m.state = StateDenied
	m.denied = denied
	m.mu.Unlock()

	m.log.Warn("session verification denied", "denial", string(reason), "reason", domain.ReasonOf(err))
	return denied
}

func (m *SessionManager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *SessionManager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *SessionManager) feedURL(token string) (string, error) {
	u, err := url.Parse(m.api.BaseURL())
	if err != nil {
		return "", fmt.Errorf("client: invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func reasonFor(err error) DenialReason {
	switch {
	case domain.IsRejection(err):
		return ReasonRejected
	case errors.Is(err, domain.ErrEnvironmentUnavailable):
		return ReasonEnvironmentUnavailable
	default:
		return ReasonTransient
	}
}

// checkIntegrity compares the token's unverified claims with the cached
// copy. The server stays the authority on the signature.
func checkIntegrity(s *LocalSession) error {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return fmt.Errorf("unparseable token: %w", err)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Unix() != s.ExpiresAt.Unix() {
		return errors.New("expiry does not match token")
	}
	if claims.Subject != strconv.FormatInt(s.User.TelegramID, 10) {
		return errors.New("user does not match token subject")
	}
	return nil
}

func tokenID(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	return claims.ID, nil
}

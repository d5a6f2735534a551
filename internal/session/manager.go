// Package session owns the authenticated user's tokens and derived identity.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/infrastructure/token"
	"github.com/ong-collab/collabctl/internal/metrics"
	"github.com/ong-collab/collabctl/internal/utils/validator"
)

// DefaultCheckInterval is the passive expiry check period.
const DefaultCheckInterval = 5 * time.Minute

// Options configures a Manager. Store and Auth are required.
type Options struct {
	Store         domain.SessionStore
	Auth          domain.AuthGateway
	Decoder       domain.TokenDecoder
	Navigator     domain.Navigator
	Validator     *validator.Validator
	ExpiryBuffer  time.Duration
	CheckInterval time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// profileLogin is implemented by gateways whose login response may carry
// the user profile.
type profileLogin interface {
	LoginWithProfile(ctx context.Context, creds domain.Credentials) (*domain.Tokens, *domain.Profile, error)
}

type nopNavigator struct{}

func (nopNavigator) Navigate(string) {}

// Manager is the single owner of the session. All mutations go through it.
// Safe for concurrent use.
type Manager struct {
	store     domain.SessionStore
	auth      domain.AuthGateway
	decoder   domain.TokenDecoder
	navigator domain.Navigator
	validate  *validator.Validator
	expiry    *token.Expiry
	interval  time.Duration
	logger    *slog.Logger

	mu         sync.RWMutex
	state      State
	tokens     domain.Tokens
	identity   *domain.Identity
	expiresAt  time.Time
	refreshing bool
	// epoch increments whenever the session is replaced or cleared. A refresh
	// only commits if the epoch it started in is still current.
	epoch uint64

	refreshGroup singleflight.Group

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
	hooks   []func(Snapshot)
}

// NewManager creates a Manager in StateUninitialized.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Auth == nil {
		return nil, errors.New("auth gateway is required")
	}
	if opts.Decoder == nil {
		opts.Decoder = token.NewDecoder()
	}
	if opts.Navigator == nil {
		opts.Navigator = nopNavigator{}
	}
	if opts.Validator == nil {
		opts.Validator = validator.New()
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Manager{
		store:     opts.Store,
		auth:      opts.Auth,
		decoder:   opts.Decoder,
		navigator: opts.Navigator,
		validate:  opts.Validator,
		expiry:    token.NewExpiry(opts.ExpiryBuffer, opts.Now),
		interval:  opts.CheckInterval,
		logger:    opts.Logger.With("component", "session"),
		state:     StateUninitialized,
		subs:      make(map[int]chan Snapshot),
	}, nil
}

// Init loads the persisted session. Storage and decoding failures degrade to
// StateUnauthenticated; only a failed refresh has side effects beyond that.
func (m *Manager) Init(ctx context.Context) error {
	access := m.read(ctx, domain.KeyAccessToken)
	refresh := m.read(ctx, domain.KeyRefreshToken)

	if access == "" || refresh == "" {
		m.logger.Debug("no persisted session")
		m.reset(ctx, "missing tokens")
		return nil
	}

	claims, err := m.decoder.Decode(access)
	if err != nil {
		m.logger.Debug("persisted access token is unreadable", "error", err)
		m.reset(ctx, "malformed access token")
		return nil
	}

	if m.expiry.ClaimsExpired(claims) {
		m.logger.Info("persisted access token expired, refreshing")
		if err := m.Refresh(ctx); err != nil {
			m.logger.Debug("startup refresh failed", "error", err)
		}
		return nil
	}

	identity := domain.MergeIdentity(claims, m.cachedProfile(ctx))

	m.mu.Lock()
	m.tokens = domain.Tokens{AccessToken: access, RefreshToken: refresh}
	m.setAuthenticatedLocked(identity, claims.ExpiresAt)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("session restored", "user_id", identity.ID, "role", identity.Role)
	m.publish(snap)
	return nil
}

// reset clears stale keys and settles in StateUnauthenticated without navigating.
func (m *Manager) reset(ctx context.Context, reason string) {
	m.mu.Lock()
	if err := m.clearLocked(ctx); err != nil {
		m.logger.Debug("failed to clear stale session keys", "reason", reason, "error", err)
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
}

// Login authenticates with credentials. On failure the current session is
// left untouched and the error is returned as is.
func (m *Manager) Login(ctx context.Context, creds domain.Credentials) (domain.Identity, error) {
	if err := m.validate.Validate(creds); err != nil {
		return domain.Identity{}, err
	}

	tokens, echoed, err := m.login(ctx, creds)
	if err != nil {
		metrics.RecordLogin("failure")
		return domain.Identity{}, err
	}

	claims, err := m.decoder.Decode(tokens.AccessToken)
	if err != nil {
		metrics.RecordLogin("failure")
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}

	cached := echoed
	if cached == nil || cached.ID != claims.Subject {
		cached = m.cachedProfile(ctx)
	}
	identity := domain.MergeIdentity(claims, cached)
	profile := identity.Profile()
	if cached != nil && cached.ID == claims.Subject {
		profile.CreatedAt = cached.CreatedAt
		profile.UpdatedAt = cached.UpdatedAt
	}

	m.mu.Lock()
	if err := m.persistLocked(ctx, *tokens, &profile); err != nil {
		m.mu.Unlock()
		metrics.RecordLogin("failure")
		return domain.Identity{}, fmt.Errorf("persist session: %w", err)
	}
	m.epoch++
	m.tokens = *tokens
	m.refreshing = false
	m.setAuthenticatedLocked(identity, claims.ExpiresAt)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	metrics.RecordLogin("success")
	m.logger.Info("logged in", "user_id", identity.ID, "role", identity.Role)
	m.publish(snap)
	m.navigator.Navigate(domain.RouteDashboard)
	return identity, nil
}

func (m *Manager) login(ctx context.Context, creds domain.Credentials) (*domain.Tokens, *domain.Profile, error) {
	if pl, ok := m.auth.(profileLogin); ok {
		return pl.LoginWithProfile(ctx, creds)
	}
	tokens, err := m.auth.Login(ctx, creds)
	return tokens, nil, err
}

// Register creates a MEMBER account and sends the user to the login page.
// No session is created.
func (m *Manager) Register(ctx context.Context, input domain.RegisterInput) (*domain.Profile, error) {
	input.Role = domain.RoleMember
	if err := m.validate.Validate(input); err != nil {
		return nil, err
	}

	profile, err := m.auth.Register(ctx, input)
	if err != nil {
		return nil, err
	}

	m.logger.Info("registered", "email", input.Email)
	m.navigator.Navigate(domain.RouteLogin)
	return profile, nil
}

// Refresh exchanges the refresh token for a new pair. Concurrent callers in
// the same session share one backend call. Any failure clears the session
// and navigates to the login page. A result that arrives after the session
// was replaced or cleared is discarded with ErrSessionSuperseded.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.refreshStale(ctx, "")
}

// refreshStale refreshes unless stale is set and the session already moved
// on to a different, unexpired access token.
func (m *Manager) refreshStale(ctx context.Context, stale string) error {
	m.mu.RLock()
	epoch := m.epoch
	m.mu.RUnlock()

	// The shared call outlives any single caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.refreshGroup.DoChan(strconv.FormatUint(epoch, 10), func() (any, error) {
		if stale != "" {
			m.mu.RLock()
			current := m.tokens.AccessToken
			m.mu.RUnlock()
			if current != "" && current != stale && !m.expired(current) {
				return nil, nil
			}
		}
		return nil, m.refresh(flightCtx, epoch)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) refresh(ctx context.Context, epoch uint64) error {
	m.markRefreshing(epoch)

	refreshToken := m.read(ctx, domain.KeyRefreshToken)
	if refreshToken == "" {
		return m.failRefresh(ctx, epoch, "missing_refresh_token", domain.ErrRefreshTokenMissing)
	}
	if m.expired(refreshToken) {
		return m.failRefresh(ctx, epoch, "expired_refresh_token", domain.ErrRefreshTokenExpired)
	}

	tokens, err := m.auth.Refresh(ctx, refreshToken)
	if err != nil {
		return m.failRefresh(ctx, epoch, "backend", fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err))
	}

	claims, err := m.decoder.Decode(tokens.AccessToken)
	if err != nil {
		return m.failRefresh(ctx, epoch, "malformed_token", fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err))
	}
	identity := domain.MergeIdentity(claims, m.cachedProfile(ctx))

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		metrics.RecordRefresh("superseded")
		m.logger.Info("discarding refresh result for a replaced session")
		return domain.ErrSessionSuperseded
	}
	if err := m.persistLocked(ctx, *tokens, nil); err != nil {
		m.mu.Unlock()
		return m.failRefresh(ctx, epoch, "storage", fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err))
	}
	m.tokens = *tokens
	m.refreshing = false
	m.setAuthenticatedLocked(identity, claims.ExpiresAt)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	metrics.RecordRefresh("success")
	m.logger.Info("session refreshed", "user_id", identity.ID, "expires_at", claims.ExpiresAt)
	m.publish(snap)
	return nil
}

// failRefresh clears the session unless it was already replaced.
func (m *Manager) failRefresh(ctx context.Context, epoch uint64, reason string, cause error) error {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		metrics.RecordRefresh("superseded")
		return domain.ErrSessionSuperseded
	}
	m.epoch++
	if err := m.clearLocked(ctx); err != nil {
		m.logger.Warn("failed to clear session storage", "error", err)
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	metrics.RecordRefresh("failure")
	metrics.RecordForcedLogout(reason)
	m.logger.Info("session cleared after failed refresh", "reason", reason, "error", cause)
	m.publish(snap)
	m.navigator.Navigate(domain.RouteLogin)
	return cause
}

// Logout clears the session unconditionally. An in-flight refresh is
// discarded when it completes. The returned error only reports storage
// failures; the in-memory session is cleared regardless.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.epoch++
	err := m.clearLocked(ctx)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("failed to clear session storage", "error", err)
	}
	m.logger.Info("logged out")
	m.publish(snap)
	m.navigator.Navigate(domain.RouteLogin)
	return err
}

// CheckExpiry runs one passive expiry check and refreshes when the access
// token is expired. It is a no-op when no session is held.
func (m *Manager) CheckExpiry(ctx context.Context) error {
	m.mu.RLock()
	state, access := m.state, m.tokens.AccessToken
	m.mu.RUnlock()

	if state != StateAuthenticated {
		return nil
	}
	if !m.expired(access) {
		return nil
	}
	m.logger.Debug("access token expired during passive check")
	return m.refreshStale(ctx, access)
}

// Run performs CheckExpiry on every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.CheckExpiry(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Debug("passive expiry check", "error", err)
			}
		}
	}
}

// AccessToken returns the bearer token for outgoing requests, refreshing it
// first when expired. It returns "" without error when no session is held.
// Implements domain.TokenSource.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	state, access := m.state, m.tokens.AccessToken
	m.mu.RUnlock()

	if state != StateAuthenticated || access == "" {
		return "", nil
	}
	if !m.expired(access) {
		return access, nil
	}
	if err := m.refreshStale(ctx, access); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated {
		return "", domain.ErrNotAuthenticated
	}
	return m.tokens.AccessToken, nil
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every transition.
// Slow subscribers miss snapshots rather than block the manager.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

// OnChange registers fn to run synchronously after every transition.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.subMu.Lock()
	m.hooks = append(m.hooks, fn)
	m.subMu.Unlock()
}

func (m *Manager) publish(snap Snapshot) {
	metrics.SetAuthenticated(snap.Authenticated())

	m.subMu.Lock()
	hooks := append([]func(Snapshot){}, m.hooks...)
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
		}
	}
	m.subMu.Unlock()

	for _, fn := range hooks {
		fn(snap)
	}
}

func (m *Manager) markRefreshing(epoch uint64) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.refreshing = true
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
}

func (m *Manager) setAuthenticatedLocked(identity domain.Identity, expiresAt time.Time) {
	m.identity = &identity
	m.expiresAt = expiresAt
	m.state = StateAuthenticated
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      m.state,
		ExpiresAt:  m.expiresAt,
		Refreshing: m.refreshing,
	}
	if m.identity != nil {
		id := *m.identity
		snap.Identity = &id
	}
	return snap
}

// clearLocked drops the in-memory session and deletes the three keys.
func (m *Manager) clearLocked(ctx context.Context) error {
	m.tokens = domain.Tokens{}
	m.identity = nil
	m.expiresAt = time.Time{}
	m.refreshing = false
	m.state = StateUnauthenticated
	return m.store.Delete(ctx, domain.SessionKeys...)
}

// persistLocked writes the tokens and, when given, the profile.
func (m *Manager) persistLocked(ctx context.Context, tokens domain.Tokens, profile *domain.Profile) error {
	if err := m.store.Set(ctx, domain.KeyAccessToken, tokens.AccessToken); err != nil {
		return err
	}
	if err := m.store.Set(ctx, domain.KeyRefreshToken, tokens.RefreshToken); err != nil {
		return err
	}
	if profile == nil {
		return nil
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return m.store.Set(ctx, domain.KeyUser, string(raw))
}

// expired applies the expiry predicate to a raw token. Unreadable tokens are expired.
func (m *Manager) expired(raw string) bool {
	claims, err := m.decoder.Decode(raw)
	if err != nil {
		return true
	}
	return m.expiry.ClaimsExpired(claims)
}

// read returns the stored value or "" when absent or unreadable.
func (m *Manager) read(ctx context.Context, key string) string {
	v, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			m.logger.Debug("session storage read failed", "key", key, "error", err)
		}
		return ""
	}
	return v
}

// cachedProfile returns the persisted profile, or nil when absent or corrupt.
func (m *Manager) cachedProfile(ctx context.Context) *domain.Profile {
	raw := m.read(ctx, domain.KeyUser)
	if raw == "" {
		return nil
	}
	var p domain.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		m.logger.Debug("cached profile is corrupt", "error", err)
		return nil
	}
	return &p
}

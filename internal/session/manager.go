package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"tally/internal/domain"
)

const (
	DefaultCookieName = "tally.sid"
	DefaultTTL        = 24 * time.Hour

	sessionIDBytes = 32
)

// Options configures a Manager.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Secret     []byte
}

// Manager owns the session lifecycle: it mints opaque tokens, binds them to
// an identity in the backing Store and resolves them on later requests.
type Manager struct {
	store      Store
	codec      *CookieCodec
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

func NewManager(store Store, opts Options) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if len(opts.Secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	return &Manager{
		store:      store,
		codec:      NewCookieCodec(opts.Secret),
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		now:        time.Now,
	}, nil
}

// Create stores a new session for identity and returns the cookie value for it.
func (m *Manager) Create(ctx context.Context, identity domain.Identity) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	if err := m.store.Save(ctx, id, identity, m.ttl); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	token, err := m.codec.Encode(id, m.now().Add(m.ttl))
	if err != nil {
		_ = m.store.Delete(ctx, id)
		return "", err
	}
	return token, nil
}

// Resolve returns the identity bound to token. Absent, forged, unknown and
// expired tokens all resolve to false without an error.
func (m *Manager) Resolve(ctx context.Context, token string) (domain.Identity, bool, error) {
	if token == "" {
		return domain.Identity{}, false, nil
	}

	id, err := m.codec.Decode(token)
	if err != nil {
		return domain.Identity{}, false, nil
	}

	identity, ok, err := m.store.Load(ctx, id)
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("load session: %w", err)
	}
	return identity, ok, nil
}

// Destroy removes the session behind token. It is idempotent.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	id, err := m.codec.DecodeExpired(token)
	if err != nil {
		return nil
	}

	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (m *Manager) CookieName() string { return m.cookieName }

func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) Secure() bool { return m.secure }

func newSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

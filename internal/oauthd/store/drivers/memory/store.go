// Package memory is a process-local store for development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
)

// Store keeps every record in maps behind one mutex. Records are copied in
// and out so callers never share slices with the store.
type Store struct {
	mu sync.Mutex

	users         map[string]domain.User
	clients       map[string]domain.Client
	accessTokens  map[string]domain.AccessToken
	refreshTokens map[string]domain.RefreshToken
	codes         map[string]domain.AuthorizationCode
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:         map[string]domain.User{},
		clients:       map[string]domain.Client{},
		accessTokens:  map[string]domain.AccessToken{},
		refreshTokens: map[string]domain.RefreshToken{},
		codes:         map[string]domain.AuthorizationCode{},
	}
}

func (s *Store) Users() store.Users                           { return usersRepo{s} }
func (s *Store) Clients() store.Clients                       { return clientsRepo{s} }
func (s *Store) Tokens() store.Tokens                         { return tokensRepo{s} }
func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return codesRepo{s} }

func (s *Store) ApplyMigrations() error         { return nil }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

type usersRepo struct{ s *Store }

func (r usersRepo) GetUserByID(_ context.Context, id string) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r usersRepo) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (r usersRepo) CreateUser(_ context.Context, u domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; ok {
		return store.ErrAlreadyExists
	}
	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return store.ErrAlreadyExists
		}
	}
	r.s.users[u.ID] = u
	return nil
}

func (r usersRepo) IsEmpty(context.Context) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users) == 0, nil
}

type clientsRepo struct{ s *Store }

func (r clientsRepo) GetClientByID(_ context.Context, id string) (domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.clients[id]
	if !ok {
		return domain.Client{}, store.ErrNotFound
	}
	return cloneClient(c), nil
}

func (r clientsRepo) ListClients(context.Context) ([]domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Client, 0, len(r.s.clients))
	for _, c := range r.s.clients {
		out = append(out, cloneClient(c))
	}
	slices.SortFunc(out, func(a, b domain.Client) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (r clientsRepo) CreateClient(_ context.Context, c domain.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clients[c.ID]; ok {
		return store.ErrAlreadyExists
	}
	r.s.clients[c.ID] = cloneClient(c)
	return nil
}

func (r clientsRepo) DeleteClient(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clients[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.clients, id)
	return nil
}

func (r clientsRepo) IsEmpty(context.Context) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.clients) == 0, nil
}

type tokensRepo struct{ s *Store }

func (r tokensRepo) CreateAccessToken(_ context.Context, t domain.AccessToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accessTokens[t.TokenHash]; ok {
		return store.ErrAlreadyExists
	}
	r.s.accessTokens[t.TokenHash] = t
	return nil
}

func (r tokensRepo) GetAccessTokenByHash(_ context.Context, hash string) (domain.AccessToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.accessTokens[hash]
	if !ok {
		return domain.AccessToken{}, store.ErrNotFound
	}
	return t, nil
}

func (r tokensRepo) CreateRefreshToken(_ context.Context, t domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.refreshTokens[t.TokenHash]; ok {
		return store.ErrAlreadyExists
	}
	r.s.refreshTokens[t.TokenHash] = t
	return nil
}

func (r tokensRepo) GetRefreshTokenByHash(_ context.Context, hash string) (domain.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.refreshTokens[hash]
	if !ok || t.Revoked {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return t, nil
}

func (r tokensRepo) RevokeRefreshToken(_ context.Context, hash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.refreshTokens[hash]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	r.s.refreshTokens[hash] = t
	return true, nil
}

func (r tokensRepo) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for k, t := range r.s.accessTokens {
		if t.ExpiresAt != nil && !t.ExpiresAt.After(now) {
			delete(r.s.accessTokens, k)
			n++
		}
	}
	for k, t := range r.s.refreshTokens {
		if t.Revoked || (t.ExpiresAt != nil && !t.ExpiresAt.After(now)) {
			delete(r.s.refreshTokens, k)
			n++
		}
	}
	return n, nil
}

type codesRepo struct{ s *Store }

func (r codesRepo) CreateAuthorizationCode(_ context.Context, c domain.AuthorizationCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.codes[c.CodeHash]; ok {
		return store.ErrAlreadyExists
	}
	r.s.codes[c.CodeHash] = c
	return nil
}

func (r codesRepo) GetAuthorizationCodeByHash(_ context.Context, hash string) (domain.AuthorizationCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.codes[hash]
	if !ok || c.UsedAt != nil {
		return domain.AuthorizationCode{}, store.ErrNotFound
	}
	return c, nil
}

func (r codesRepo) ConsumeAuthorizationCode(_ context.Context, hash string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.codes[hash]
	if !ok || c.UsedAt != nil {
		return false, nil
	}
	c.UsedAt = &now
	r.s.codes[hash] = c
	return true, nil
}

func (r codesRepo) DeleteExpiredAuthorizationCodes(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for k, c := range r.s.codes {
		if c.UsedAt != nil || !c.ExpiresAt.After(now) {
			delete(r.s.codes, k)
			n++
		}
	}
	return n, nil
}

func cloneClient(c domain.Client) domain.Client {
	c.RedirectURIs = slices.Clone(c.RedirectURIs)
	c.Grants = slices.Clone(c.Grants)
	return c
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/pkg/cryptox"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
)

// Model adapts a Store to the oauth engine's model capabilities. Client
// secrets and user passwords are verified against argon2 hashes; tokens and
// codes are looked up by fingerprint.
type Model struct {
	store  Store
	hasher *cryptox.Hasher
	now    func() time.Time
}

var (
	_ oauth.ClientGetter             = (*Model)(nil)
	_ oauth.UserGetter               = (*Model)(nil)
	_ oauth.AccessTokenGetter        = (*Model)(nil)
	_ oauth.RefreshTokenGetter       = (*Model)(nil)
	_ oauth.TokenSaver               = (*Model)(nil)
	_ oauth.AuthorizationCodeSaver   = (*Model)(nil)
	_ oauth.AuthorizationCodeGetter  = (*Model)(nil)
	_ oauth.AuthorizationCodeRevoker = (*Model)(nil)
	_ oauth.RefreshTokenRevoker      = (*Model)(nil)
	_ oauth.ClientUserGetter         = (*Model)(nil)
)

// NewModel returns a Model over s. A nil now uses time.Now.
func NewModel(s Store, hasher *cryptox.Hasher, now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	return &Model{store: s, hasher: hasher, now: now}
}

// GetClient loads a client. An empty secret is a lookup by id, as done by
// the authorize endpoint; otherwise the secret must match.
func (m *Model) GetClient(ctx context.Context, id, secret string) (*oauth.Client, error) {
	c, err := m.store.Clients().GetClientByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if secret != "" {
		if c.SecretHash == "" {
			return nil, nil
		}
		if err := m.hasher.Verify(secret, c.SecretHash); err != nil {
			if errors.Is(err, cryptox.ErrMismatch) {
				return nil, nil
			}
			return nil, fmt.Errorf("verify client secret: %w", err)
		}
	}

	return &oauth.Client{
		ID:                   c.ID,
		RedirectURIs:         c.RedirectURIs,
		Grants:               c.Grants,
		AccessTokenLifetime:  c.AccessTokenTTL,
		RefreshTokenLifetime: c.RefreshTokenTTL,
	}, nil
}

func (m *Model) GetUser(ctx context.Context, username, password string) (*oauth.User, error) {
	u, err := m.store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := m.hasher.Verify(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return nil, nil
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}

	return toUser(u), nil
}

func (m *Model) GetAccessToken(ctx context.Context, token string) (*oauth.Token, error) {
	t, err := m.store.Tokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		return nil, err
	}

	return &oauth.Token{
		AccessToken:          token,
		AccessTokenExpiresAt: t.ExpiresAt,
		Scope:                t.Scope,
		ClientID:             t.ClientID,
		UserID:               t.UserID,
		User:                 m.userByID(ctx, t.UserID),
	}, nil
}

func (m *Model) GetRefreshToken(ctx context.Context, token string) (*oauth.RefreshToken, error) {
	t, err := m.store.Tokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		return nil, err
	}

	return &oauth.RefreshToken{
		RefreshToken: token,
		ExpiresAt:    t.ExpiresAt,
		Scope:        t.Scope,
		ClientID:     t.ClientID,
		UserID:       t.UserID,
	}, nil
}

// SaveToken stores the access token and, when present, the refresh token.
// A refresh token carried over without rotation is already stored and is
// left alone.
func (m *Model) SaveToken(ctx context.Context, token *oauth.Token, client *oauth.Client, user *oauth.User) (*oauth.Token, error) {
	now := m.now()
	userID := token.UserID
	if user != nil {
		userID = user.ID
	}

	err := m.store.Tokens().CreateAccessToken(ctx, domain.AccessToken{
		TokenHash: cryptox.FingerprintToken(token.AccessToken),
		ClientID:  client.ID,
		UserID:    userID,
		Scope:     token.Scope,
		ExpiresAt: token.AccessTokenExpiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("save access token: %w", err)
	}

	if token.RefreshToken != "" {
		err := m.store.Tokens().CreateRefreshToken(ctx, domain.RefreshToken{
			TokenHash: cryptox.FingerprintToken(token.RefreshToken),
			ClientID:  client.ID,
			UserID:    userID,
			Scope:     token.Scope,
			ExpiresAt: token.RefreshTokenExpiresAt,
			CreatedAt: now,
		})
		if err != nil && !errors.Is(err, ErrAlreadyExists) {
			return nil, fmt.Errorf("save refresh token: %w", err)
		}
	}

	saved := *token
	saved.ClientID = client.ID
	saved.UserID = userID
	return &saved, nil
}

func (m *Model) SaveAuthorizationCode(ctx context.Context, code *oauth.AuthorizationCode, client *oauth.Client, user *oauth.User) (*oauth.AuthorizationCode, error) {
	userID := code.UserID
	if user != nil {
		userID = user.ID
	}

	err := m.store.AuthorizationCodes().CreateAuthorizationCode(ctx, domain.AuthorizationCode{
		CodeHash:    cryptox.FingerprintToken(code.Code),
		ClientID:    client.ID,
		UserID:      userID,
		RedirectURI: code.RedirectURI,
		Scope:       code.Scope,
		ExpiresAt:   code.ExpiresAt,
		CreatedAt:   m.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("save authorization code: %w", err)
	}

	return code, nil
}

func (m *Model) GetAuthorizationCode(ctx context.Context, code string) (*oauth.AuthorizationCode, error) {
	c, err := m.store.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, cryptox.FingerprintToken(code))
	if err != nil {
		return nil, err
	}

	return &oauth.AuthorizationCode{
		Code:        code,
		ExpiresAt:   c.ExpiresAt,
		RedirectURI: c.RedirectURI,
		Scope:       c.Scope,
		ClientID:    c.ClientID,
		UserID:      c.UserID,
		User:        m.userByID(ctx, c.UserID),
	}, nil
}

func (m *Model) RevokeAuthorizationCode(ctx context.Context, code *oauth.AuthorizationCode) (bool, error) {
	return m.store.AuthorizationCodes().ConsumeAuthorizationCode(ctx, cryptox.FingerprintToken(code.Code), m.now())
}

func (m *Model) RevokeToken(ctx context.Context, token *oauth.RefreshToken) (bool, error) {
	return m.store.Tokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(token.RefreshToken))
}

// GetUserFromClient returns the user a client acts as under
// client_credentials, or nil when it acts as itself.
func (m *Model) GetUserFromClient(ctx context.Context, client *oauth.Client) (*oauth.User, error) {
	c, err := m.store.Clients().GetClientByID(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	if c.UserID == "" {
		return nil, nil
	}

	u, err := m.store.Users().GetUserByID(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	return toUser(u), nil
}

// userByID resolves the username for principals. Lookup failures leave the
// engine with the bare id.
func (m *Model) userByID(ctx context.Context, id string) *oauth.User {
	if id == "" {
		return nil
	}
	u, err := m.store.Users().GetUserByID(ctx, id)
	if err != nil {
		return nil
	}
	return toUser(u)
}

func toUser(u domain.User) *oauth.User {
	return &oauth.User{ID: u.ID, Username: u.Username}
}

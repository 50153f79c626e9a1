// Package oauthtest provides a configurable model double for exercising the
// engines without a store.
package oauthtest

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
)

// Model implements every model capability. Each method counts its calls and
// delegates to the matching Func field; a nil Func reports "not found" for
// lookups and echoes the input for saves.
type Model struct {
	GetClientFunc               func(ctx context.Context, id, secret string) (*oauth.Client, error)
	GetUserFunc                 func(ctx context.Context, username, password string) (*oauth.User, error)
	GetAccessTokenFunc          func(ctx context.Context, token string) (*oauth.Token, error)
	GetRefreshTokenFunc         func(ctx context.Context, token string) (*oauth.RefreshToken, error)
	SaveTokenFunc               func(ctx context.Context, token *oauth.Token, client *oauth.Client, user *oauth.User) (*oauth.Token, error)
	SaveAuthorizationCodeFunc   func(ctx context.Context, code *oauth.AuthorizationCode, client *oauth.Client, user *oauth.User) (*oauth.AuthorizationCode, error)
	GrantTypeAllowedFunc        func(ctx context.Context, clientID, grantType string) (bool, error)
	GetAuthorizationCodeFunc    func(ctx context.Context, code string) (*oauth.AuthorizationCode, error)
	RevokeAuthorizationCodeFunc func(ctx context.Context, code *oauth.AuthorizationCode) (bool, error)
	RevokeTokenFunc             func(ctx context.Context, token *oauth.RefreshToken) (bool, error)
	GetUserFromClientFunc       func(ctx context.Context, client *oauth.Client) (*oauth.User, error)

	mu    sync.Mutex
	calls map[string]int
}

// Calls returns how many times the capability (e.g. oauth.CapGetClient) ran.
func (m *Model) Calls(capability string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[capability]
}

func (m *Model) record(capability string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[capability]++
}

func (m *Model) GetClient(ctx context.Context, id, secret string) (*oauth.Client, error) {
	m.record(oauth.CapGetClient)
	if m.GetClientFunc == nil {
		return nil, nil
	}
	return m.GetClientFunc(ctx, id, secret)
}

func (m *Model) GetUser(ctx context.Context, username, password string) (*oauth.User, error) {
	m.record(oauth.CapGetUser)
	if m.GetUserFunc == nil {
		return nil, nil
	}
	return m.GetUserFunc(ctx, username, password)
}

func (m *Model) GetAccessToken(ctx context.Context, token string) (*oauth.Token, error) {
	m.record(oauth.CapGetAccessToken)
	if m.GetAccessTokenFunc == nil {
		return nil, nil
	}
	return m.GetAccessTokenFunc(ctx, token)
}

func (m *Model) GetRefreshToken(ctx context.Context, token string) (*oauth.RefreshToken, error) {
	m.record(oauth.CapGetRefreshToken)
	if m.GetRefreshTokenFunc == nil {
		return nil, nil
	}
	return m.GetRefreshTokenFunc(ctx, token)
}

func (m *Model) SaveToken(ctx context.Context, token *oauth.Token, client *oauth.Client, user *oauth.User) (*oauth.Token, error) {
	m.record(oauth.CapSaveToken)
	if m.SaveTokenFunc == nil {
		return token, nil
	}
	return m.SaveTokenFunc(ctx, token, client, user)
}

func (m *Model) SaveAuthorizationCode(ctx context.Context, code *oauth.AuthorizationCode, client *oauth.Client, user *oauth.User) (*oauth.AuthorizationCode, error) {
	m.record(oauth.CapSaveAuthorizationCode)
	if m.SaveAuthorizationCodeFunc == nil {
		return code, nil
	}
	return m.SaveAuthorizationCodeFunc(ctx, code, client, user)
}

func (m *Model) GrantTypeAllowed(ctx context.Context, clientID, grantType string) (bool, error) {
	m.record(oauth.CapGrantTypeAllowed)
	if m.GrantTypeAllowedFunc == nil {
		return true, nil
	}
	return m.GrantTypeAllowedFunc(ctx, clientID, grantType)
}

func (m *Model) GetAuthorizationCode(ctx context.Context, code string) (*oauth.AuthorizationCode, error) {
	m.record(oauth.CapGetAuthorizationCode)
	if m.GetAuthorizationCodeFunc == nil {
		return nil, nil
	}
	return m.GetAuthorizationCodeFunc(ctx, code)
}

func (m *Model) RevokeAuthorizationCode(ctx context.Context, code *oauth.AuthorizationCode) (bool, error) {
	m.record(oauth.CapRevokeAuthorizationCode)
	if m.RevokeAuthorizationCodeFunc == nil {
		return true, nil
	}
	return m.RevokeAuthorizationCodeFunc(ctx, code)
}

func (m *Model) RevokeToken(ctx context.Context, token *oauth.RefreshToken) (bool, error) {
	m.record(oauth.CapRevokeToken)
	if m.RevokeTokenFunc == nil {
		return true, nil
	}
	return m.RevokeTokenFunc(ctx, token)
}

func (m *Model) GetUserFromClient(ctx context.Context, client *oauth.Client) (*oauth.User, error) {
	m.record(oauth.CapGetUserFromClient)
	if m.GetUserFromClientFunc == nil {
		return nil, nil
	}
	return m.GetUserFromClientFunc(ctx, client)
}

// Clock is a settable time source for oauth.Options.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock { return &Clock{now: now} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StaticGenerator returns fixed token values so responses can be asserted
// exactly.
type StaticGenerator struct {
	AccessToken       string
	RefreshToken      string
	AuthorizationCode string
}

func (g StaticGenerator) GenerateAccessToken(context.Context, oauth.GenerateRequest) (string, error) {
	return g.AccessToken, nil
}

func (g StaticGenerator) GenerateRefreshToken(context.Context, oauth.GenerateRequest) (string, error) {
	return g.RefreshToken, nil
}

func (g StaticGenerator) GenerateAuthorizationCode(context.Context, oauth.GenerateRequest) (string, error) {
	return g.AuthorizationCode, nil
}

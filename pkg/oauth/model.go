package oauth

import (
	"context"
	"errors"
	"fmt"
)

// The model is the data-access port. It is any value; each capability below
// is detected with a type assertion so a model only implements what the
// configured flows need.

type ClientGetter interface {
	// GetClient returns the client for id. secret is empty when the caller
	// does not authenticate the client (the authorize endpoint).
	GetClient(ctx context.Context, id, secret string) (*Client, error)
}

type UserGetter interface {
	GetUser(ctx context.Context, username, password string) (*User, error)
}

type AccessTokenGetter interface {
	GetAccessToken(ctx context.Context, accessToken string) (*Token, error)
}

type RefreshTokenGetter interface {
	GetRefreshToken(ctx context.Context, refreshToken string) (*RefreshToken, error)
}

type TokenSaver interface {
	// SaveToken persists token and returns the record to send to the client.
	SaveToken(ctx context.Context, token *Token, client *Client, user *User) (*Token, error)
}

type AuthorizationCodeSaver interface {
	SaveAuthorizationCode(ctx context.Context, code *AuthorizationCode, client *Client, user *User) (*AuthorizationCode, error)
}

type GrantTypeChecker interface {
	GrantTypeAllowed(ctx context.Context, clientID, grantType string) (bool, error)
}

type AuthorizationCodeGetter interface {
	GetAuthorizationCode(ctx context.Context, code string) (*AuthorizationCode, error)
}

type AuthorizationCodeRevoker interface {
	// RevokeAuthorizationCode consumes code. It must return false when the
	// code was already consumed so that a code redeems at most once.
	RevokeAuthorizationCode(ctx context.Context, code *AuthorizationCode) (bool, error)
}

type RefreshTokenRevoker interface {
	// RevokeToken invalidates a refresh token during rotation. It returns
	// false if the token was already revoked.
	RevokeToken(ctx context.Context, token *RefreshToken) (bool, error)
}

type ClientUserGetter interface {
	// GetUserFromClient returns the user a client_credentials token acts for.
	GetUserFromClient(ctx context.Context, client *Client) (*User, error)
}

// Capability names, used in invalid_argument descriptions.
const (
	CapGetClient               = "getClient"
	CapGetUser                 = "getUser"
	CapGetAccessToken          = "getAccessToken"
	CapGetRefreshToken         = "getRefreshToken"
	CapSaveToken               = "saveToken"
	CapSaveAuthorizationCode   = "saveAuthorizationCode"
	CapGrantTypeAllowed        = "grantTypeAllowed"
	CapGetAuthorizationCode    = "getAuthorizationCode"
	CapRevokeAuthorizationCode = "revokeAuthorizationCode"
	CapRevokeToken             = "revokeToken"
	CapGetUserFromClient       = "getUserFromClient"
)

var capabilities = map[string]func(any) bool{
	CapGetClient:               implements[ClientGetter],
	CapGetUser:                 implements[UserGetter],
	CapGetAccessToken:          implements[AccessTokenGetter],
	CapGetRefreshToken:         implements[RefreshTokenGetter],
	CapSaveToken:               implements[TokenSaver],
	CapSaveAuthorizationCode:   implements[AuthorizationCodeSaver],
	CapGrantTypeAllowed:        implements[GrantTypeChecker],
	CapGetAuthorizationCode:    implements[AuthorizationCodeGetter],
	CapRevokeAuthorizationCode: implements[AuthorizationCodeRevoker],
	CapRevokeToken:             implements[RefreshTokenRevoker],
	CapGetUserFromClient:       implements[ClientUserGetter],
}

func implements[T any](model any) bool {
	_, ok := model.(T)
	return ok
}

// CheckModel reports an invalid_argument error naming the first capability
// in names that model does not implement.
func CheckModel(model any, names ...string) error {
	if model == nil {
		return NewError(KindInvalidArgument, "Missing parameter: `model`")
	}

	for _, name := range names {
		check, ok := capabilities[name]
		if !ok {
			return newErrorf(KindInvalidArgument, "Invalid argument: unknown model capability `%s`", name)
		}
		if !check(model) {
			return newErrorf(KindInvalidArgument, "Invalid argument: model does not implement `%s()`", name)
		}
	}

	return nil
}

// lookup normalises a model read: not found becomes (nil, nil), protocol
// errors pass through and anything else is wrapped as a server error.
func lookup[T any](op string, v *T, err error) (*T, error) {
	if err == nil {
		return v, nil
	}
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return nil, modelError(op, err)
}

func modelError(op string, err error) error {
	if IsProtocolError(err) {
		return err
	}
	return AsError(fmt.Errorf("model %s: %w", op, err))
}

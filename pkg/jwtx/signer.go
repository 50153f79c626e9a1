package jwtx

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/oauthkit/pkg/cryptox"
)

// Signer signs access tokens with a single Ed25519 key.
type Signer struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// NewSigner wraps key. kid is published in the token header and the JWKS.
func NewSigner(kid string, key ed25519.PrivateKey) (*Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("jwtx: invalid Ed25519 private key size")
	}
	return &Signer{
		kid: kid,
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

// NewSignerFromPEM loads a PKCS8 PEM Ed25519 key.
func NewSignerFromPEM(kid string, pemKey []byte) (*Signer, error) {
	key, err := cryptox.ParseEd25519Key(pemKey)
	if err != nil {
		return nil, err
	}
	return NewSigner(kid, key)
}

func (s *Signer) Alg() string { return jwt.SigningMethodEdDSA.Alg() }
func (s *Signer) KID() string { return s.kid }

func (s *Signer) PublicKey() ed25519.PublicKey { return s.pub }

// Sign returns the compact serialization of claims.
func (s *Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// JWK is a public key in JSON Web Key format (RFC 7517). Only OKP keys are
// produced here.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
}

// JWKS is a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWKS returns the key set resource servers use to verify tokens offline.
func (s *Signer) JWKS() JWKS {
	return JWKS{Keys: []JWK{{
		Kty: "OKP",
		Use: "sig",
		Alg: s.Alg(),
		Kid: s.kid,
		Crv: "Ed25519",
		X:   base64.RawURLEncoding.EncodeToString(s.pub),
	}}}
}

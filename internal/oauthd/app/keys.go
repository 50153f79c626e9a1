package app

import (
	"crypto/ed25519"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/oauthkit/pkg/cryptox"
	"github.com/aussiebroadwan/oauthkit/pkg/jwtx"
)

// InitSigner loads the Ed25519 key used to sign JWT access tokens.
//
// Storage modes:
//   - SigningKeyFile set: the key is read from the PEM file, or generated and
//     written there on first start. Tokens survive restarts.
//   - SigningKeyFile empty: the key lives only in memory and every issued
//     JWT fails verification after a restart.
//
// The key id is derived from the public key so restarts with the same file
// publish the same kid.
func InitSigner(cfg Config, logger *slog.Logger) (*jwtx.Signer, error) {
	var (
		key ed25519.PrivateKey
		err error
	)

	if cfg.SigningKeyFile != "" {
		key, err = cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load signing key: %w", err)
		}
		logger.Info("signing key loaded", "path", cfg.SigningKeyFile)
	} else {
		pemKey, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		if key, err = cryptox.ParseEd25519Key(pemKey); err != nil {
			return nil, err
		}
		logger.Warn("using ephemeral signing key; JWTs will not survive a restart")
	}

	pub, _ := key.Public().(ed25519.PublicKey)
	kid := cryptox.FingerprintToken(string(pub))[:16]

	return jwtx.NewSigner(kid, key)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
	"github.com/aussiebroadwan/oauthkit/pkg/cryptox"
	"github.com/aussiebroadwan/oauthkit/pkg/idx"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
	"github.com/aussiebroadwan/oauthkit/pkg/slogx"
)

var (
	ErrSeedInvalid = errors.New("invalid seed data")
)

// SeededClient reports a client created by Seed. Secret is set only when it
// was generated, since it cannot be recovered from the store afterwards.
type SeededClient struct {
	ID     string
	Secret string
}

type SeedService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Now    func() time.Time
}

// LoadSeedFile reads a JSON seed document.
func LoadSeedFile(path string) (domain.SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.SeedData{}, fmt.Errorf("read seed file: %w", err)
	}

	var data domain.SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return domain.SeedData{}, fmt.Errorf("%w: %v", ErrSeedInvalid, err)
	}
	return data, nil
}

// Seed creates the users and clients in data. Records that already exist
// are left untouched so seeding is safe on every start.
func (s *SeedService) Seed(ctx context.Context, data domain.SeedData) ([]SeededClient, error) {
	l := slogx.FromContext(ctx)
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	if err := validateSeed(data); err != nil {
		return nil, err
	}

	userIDs := map[string]string{}
	for _, su := range data.Users {
		hash, err := s.Hasher.Hash(su.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", su.Username, err)
		}

		u := domain.User{
			ID:           idx.NewPrefixed(idx.PrefixUser).String(),
			Username:     su.Username,
			PasswordHash: hash,
			CreatedAt:    now(),
		}

		err = s.Store.Users().CreateUser(ctx, u)
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			existing, err := s.Store.Users().GetUserByUsername(ctx, su.Username)
			if err != nil {
				return nil, fmt.Errorf("load existing user %q: %w", su.Username, err)
			}
			userIDs[su.Username] = existing.ID
			l.Debug("seed user exists", slog.String("username", su.Username))
		case err != nil:
			return nil, fmt.Errorf("create user %q: %w", su.Username, err)
		default:
			userIDs[su.Username] = u.ID
			l.Info("seeded user", slog.String("user_id", u.ID), slog.String("username", su.Username))
		}
	}

	var seeded []SeededClient
	for _, sc := range data.Clients {
		id := sc.ID
		if id == "" {
			id = idx.NewPrefixed(idx.PrefixClient).String()
		}

		secret, generated := sc.Secret, false
		if secret == "" {
			var err error
			if secret, err = cryptox.GenerateSecret(cryptox.TokenSize256); err != nil {
				return nil, err
			}
			generated = true
		}
		secretHash, err := s.Hasher.Hash(secret)
		if err != nil {
			return nil, fmt.Errorf("hash secret for client %q: %w", id, err)
		}

		c := domain.Client{
			ID:           id,
			Name:         sc.Name,
			SecretHash:   secretHash,
			RedirectURIs: sc.RedirectURIs,
			Grants:       sc.Grants,
			CreatedAt:    now(),
		}
		if sc.Username != "" {
			userID, ok := userIDs[sc.Username]
			if !ok {
				existing, err := s.Store.Users().GetUserByUsername(ctx, sc.Username)
				if err != nil {
					return nil, fmt.Errorf("%w: client %q acts as unknown user %q", ErrSeedInvalid, id, sc.Username)
				}
				userID = existing.ID
			}
			c.UserID = userID
		}

		err = s.Store.Clients().CreateClient(ctx, c)
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			l.Debug("seed client exists", slog.String("client_id", id))
			continue
		case err != nil:
			return nil, fmt.Errorf("create client %q: %w", id, err)
		}

		out := SeededClient{ID: id}
		if generated {
			out.Secret = secret
		}
		seeded = append(seeded, out)
		l.Info("seeded client", slog.String("client_id", id), slog.Bool("generated_secret", generated))
	}

	return seeded, nil
}

func validateSeed(data domain.SeedData) error {
	for _, u := range data.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("%w: users need a username and password", ErrSeedInvalid)
		}
	}
	for _, c := range data.Clients {
		for _, g := range c.Grants {
			if !slices.Contains(oauth.AllGrantTypes, g) {
				return fmt.Errorf("%w: client %q lists unsupported grant %q", ErrSeedInvalid, c.ID, g)
			}
		}
	}
	return nil
}

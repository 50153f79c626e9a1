package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
)

type clientsRepo struct{ s *Store }

type clientHash struct {
	ID              string `redis:"id"`
	Name            string `redis:"name"`
	SecretHash      string `redis:"secret_hash"`
	RedirectURIs    string `redis:"redirect_uris"`
	Grants          string `redis:"grants"`
	UserID          string `redis:"user_id"`
	AccessTokenTTL  int64  `redis:"access_token_ttl"`
	RefreshTokenTTL int64  `redis:"refresh_token_ttl"`
	CreatedAt       int64  `redis:"created_at"`
}

func (h clientHash) domain() domain.Client {
	return domain.Client{
		ID:              h.ID,
		Name:            h.Name,
		SecretHash:      h.SecretHash,
		RedirectURIs:    splitList(h.RedirectURIs),
		Grants:          splitList(h.Grants),
		UserID:          h.UserID,
		AccessTokenTTL:  time.Duration(h.AccessTokenTTL) * time.Second,
		RefreshTokenTTL: time.Duration(h.RefreshTokenTTL) * time.Second,
		CreatedAt:       fromMillis(h.CreatedAt),
	}
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	var h clientHash
	if err := r.s.getHash(ctx, r.s.key("clients", id), &h); err != nil {
		return domain.Client{}, err
	}
	return h.domain(), nil
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	ids, err := r.s.rdb.SMembers(ctx, r.s.key("clients")).Result()
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)

	clients := make([]domain.Client, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetClientByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	added, err := r.s.rdb.SAdd(ctx, r.s.key("clients"), c.ID).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return store.ErrAlreadyExists
	}

	return r.s.rdb.HSet(ctx, r.s.key("clients", c.ID), clientHash{
		ID:              c.ID,
		Name:            c.Name,
		SecretHash:      c.SecretHash,
		RedirectURIs:    strings.Join(c.RedirectURIs, " "),
		Grants:          strings.Join(c.Grants, " "),
		UserID:          c.UserID,
		AccessTokenTTL:  int64(c.AccessTokenTTL / time.Second),
		RefreshTokenTTL: int64(c.RefreshTokenTTL / time.Second),
		CreatedAt:       toMillis(c.CreatedAt),
	}).Err()
}

func (r *clientsRepo) DeleteClient(ctx context.Context, id string) error {
	removed, err := r.s.rdb.SRem(ctx, r.s.key("clients"), id).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return store.ErrNotFound
	}
	return r.s.rdb.Del(ctx, r.s.key("clients", id)).Err()
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	n, err := r.s.rdb.SCard(ctx, r.s.key("clients")).Result()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

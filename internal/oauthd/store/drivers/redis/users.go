package redis

import (
	"context"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
)

type usersRepo struct{ s *Store }

type userHash struct {
	ID           string `redis:"id"`
	Username     string `redis:"username"`
	PasswordHash string `redis:"password_hash"`
	CreatedAt    int64  `redis:"created_at"`
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var h userHash
	if err := r.s.getHash(ctx, r.s.key("users", id), &h); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           h.ID,
		Username:     h.Username,
		PasswordHash: h.PasswordHash,
		CreatedAt:    fromMillis(h.CreatedAt),
	}, nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	id, err := r.s.rdb.Get(ctx, r.s.key("usernames", username)).Result()
	if err != nil {
		return domain.User{}, mapNil(err)
	}
	return r.GetUserByID(ctx, id)
}

// CreateUser claims the username index first so that two concurrent
// creations of the same username cannot both succeed.
func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	ok, err := r.s.rdb.SetNX(ctx, r.s.key("usernames", u.Username), u.ID, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrAlreadyExists
	}

	added, err := r.s.rdb.SAdd(ctx, r.s.key("users"), u.ID).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		_ = r.s.rdb.Del(ctx, r.s.key("usernames", u.Username)).Err()
		return store.ErrAlreadyExists
	}

	return r.s.rdb.HSet(ctx, r.s.key("users", u.ID), userHash{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    toMillis(u.CreatedAt),
	}).Err()
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	n, err := r.s.rdb.SCard(ctx, r.s.key("users")).Result()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

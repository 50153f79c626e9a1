package cryptox_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oauthkit/pkg/cryptox"
)

func TestHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := cryptox.NewHasher("pepper")

	tests := []struct {
		name   string
		secret string
	}{
		{"simple secret", "password123"},
		{"symbols", "P@ssw0rd!#$%^&*()"},
		{"long secret", strings.Repeat("a", 100)},
		{"empty secret", ""},
		{"whitespace", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash, err := h.Hash(tt.secret)
			require.NoError(t, err)
			require.True(t, cryptox.IsHash(hash))

			parts := strings.Split(hash, "$")
			require.Len(t, parts, 6)
			require.Equal(t, "argon2id", parts[1])
			require.Equal(t, "v=19", parts[2])

			require.NoError(t, h.Verify(tt.secret, hash))
			require.ErrorIs(t, h.Verify(tt.secret+"x", hash), cryptox.ErrMismatch)
		})
	}
}

func TestHasher_UniqueSalts(t *testing.T) {
	t.Parallel()

	h := cryptox.NewHasher("")
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.NoError(t, h.Verify("same", a))
	require.NoError(t, h.Verify("same", b))
}

func TestHasher_PepperMatters(t *testing.T) {
	t.Parallel()

	hash, err := cryptox.NewHasher("one").Hash("secret")
	require.NoError(t, err)

	require.ErrorIs(t, cryptox.NewHasher("two").Verify("secret", hash), cryptox.ErrMismatch)
}

func TestHasher_InvalidHash(t *testing.T) {
	t.Parallel()

	h := cryptox.NewHasher("")
	for _, bad := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$invalid$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
	} {
		require.ErrorIs(t, h.Verify("x", bad), cryptox.ErrInvalidHash, bad)
	}
}

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	s, err := cryptox.GenerateSecret(24)
	require.NoError(t, err)
	require.Len(t, s, 24)
	require.False(t, cryptox.IsHash(s))
}

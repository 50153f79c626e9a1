package cryptox_test

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oauthkit/pkg/cryptox"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	a, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.Len(t, a, 43)

	b, err := cryptox.GenerateToken(cryptox.TokenSize128)
	require.NoError(t, err)
	require.Len(t, b, 22)
	require.NotEqual(t, a, b)

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	fp := cryptox.FingerprintToken("foobar")
	require.Equal(t, fp, cryptox.FingerprintToken("foobar"))
	require.NotEqual(t, fp, cryptox.FingerprintToken("foobaz"))
	require.True(t, cryptox.EqualFingerprint("foobar", fp))
	require.False(t, cryptox.EqualFingerprint("foobaz", fp))
}

func TestLoadOrCreatePepper(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "pepper")

	first, err := cryptox.LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := cryptox.LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrCreatePepper_Ephemeral(t *testing.T) {
	t.Parallel()

	a, err := cryptox.LoadOrCreatePepper("")
	require.NoError(t, err)
	b, err := cryptox.LoadOrCreatePepper("")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestEd25519Key(t *testing.T) {
	t.Parallel()

	pemBytes, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	key, err := cryptox.ParseEd25519Key(pemBytes)
	require.NoError(t, err)
	require.Len(t, key, ed25519.PrivateKeySize)

	_, err = cryptox.ParseEd25519Key([]byte("not pem"))
	require.Error(t, err)
}

func TestLoadOrCreateEd25519Key(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "signing.pem")

	a, err := cryptox.LoadOrCreateEd25519Key(path)
	require.NoError(t, err)
	b, err := cryptox.LoadOrCreateEd25519Key(path)
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

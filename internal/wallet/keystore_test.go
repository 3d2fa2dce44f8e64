package wallet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// testWorkFactor keeps scrypt fast in tests.
const testWorkFactor = 10

func newTestKeystore(t *testing.T) *Keystore {
	t.Helper()
	return NewKeystore(filepath.Join(t.TempDir(), "wallet", "keystore.age")).WithWorkFactor(testWorkFactor)
}

func TestKeystore_RoundTrip(t *testing.T) {
	t.Parallel()
	ks := newTestKeystore(t)
	assert.False(t, ks.Exists())

	require.NoError(t, ks.Create("  "+strings.ToUpper(devMnemonic)+" ", []byte("hunter22")))
	assert.True(t, ks.Exists())

	data, err := os.ReadFile(ks.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "-----BEGIN AGE ENCRYPTED FILE-----"))
	assert.NotContains(t, string(data), "junk")

	info, err := os.Stat(ks.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	mnemonic, err := ks.Unlock([]byte("hunter22"))
	require.NoError(t, err)
	assert.Equal(t, devMnemonic, mnemonic)
}

func TestKeystore_Errors(t *testing.T) {
	t.Parallel()
	ks := newTestKeystore(t)

	_, err := ks.Unlock([]byte("pw"))
	require.ErrorIs(t, err, cferr.ErrKeystoreNotFound)

	require.ErrorIs(t, ks.Create("not a phrase", []byte("pw")), cferr.ErrInvalidMnemonic)
	require.Error(t, ks.Create(devMnemonic, nil))
	assert.False(t, ks.Exists())

	require.NoError(t, ks.Create(devMnemonic, []byte("right")))
	require.ErrorIs(t, ks.Create(devMnemonic, []byte("right")), cferr.ErrKeystoreExists)

	_, err = ks.Unlock([]byte("wrong"))
	require.ErrorIs(t, err, cferr.ErrDecryptionFailed)
	assert.Equal(t, cferr.ExitAuth, cferr.ExitCode(err))
}

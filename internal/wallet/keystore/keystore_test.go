package keystore_test

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	gethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-sweeper/internal/wallet/keystore"
)

const (
	testKeyHex   = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testPassword = "correct horse battery staple"
)

func lightParams() keystore.ScryptParams {
	return keystore.ScryptParams{DKLen: 32, N: 1 << 12, R: 8, P: 1}
}

func TestEncryptDecryptKey(t *testing.T) {
	key, err := hex.DecodeString(testKeyHex)
	require.NoError(t, err)

	data, err := keystore.EncryptKey(key, testPassword, lightParams())
	require.NoError(t, err)

	got, err := keystore.DecryptKey(data, testPassword)
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, hex.EncodeToString(got))

	_, err = keystore.DecryptKey(data, "wrong")
	assert.True(t, errors.Is(err, keystore.ErrInvalidPassword))
}

func TestDecryptKeyFromGeth(t *testing.T) {
	ecdsaKey, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)

	data, err := gethkeystore.EncryptKey(&gethkeystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(ecdsaKey.PublicKey),
		PrivateKey: ecdsaKey,
	}, testPassword, gethkeystore.LightScryptN, gethkeystore.LightScryptP)
	require.NoError(t, err)

	got, err := keystore.DecryptKey(data, testPassword)
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, hex.EncodeToString(got))
}

func TestEncryptKeyReadableByGeth(t *testing.T) {
	key, err := hex.DecodeString(testKeyHex)
	require.NoError(t, err)

	data, err := keystore.EncryptKey(key, testPassword, lightParams())
	require.NoError(t, err)

	gethKey, err := gethkeystore.DecryptKey(data, testPassword)
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, hex.EncodeToString(crypto.FromECDSA(gethKey.PrivateKey)))
}

func TestDecryptKeyRejectsUnsupported(t *testing.T) {
	_, err := keystore.DecryptKey([]byte(`{"version":1}`), testPassword)
	require.Error(t, err)

	_, err = keystore.DecryptKey([]byte(`{"version":3,"crypto":{"cipher":"aes-128-ctr","kdf":"pbkdf2"}}`), testPassword)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pbkdf2")

	_, err = keystore.DecryptKey([]byte(`not json`), testPassword)
	require.Error(t, err)
}

func TestLoadKeyFile(t *testing.T) {
	key, err := hex.DecodeString(testKeyHex)
	require.NoError(t, err)

	data, err := keystore.EncryptKey(key, testPassword, lightParams())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "hot.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := keystore.LoadKeyFile(path, testPassword)
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	_, err = keystore.LoadKeyFile(filepath.Join(t.TempDir(), "missing.json"), testPassword)
	require.Error(t, err)
}

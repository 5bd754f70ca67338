package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-sweeper/internal/util"
	"golang.org/x/crypto/scrypt"
)

var ErrInvalidPassword = errors.New("invalid password: MAC mismatch")

// LoadKeyFile reads a keystore v3 file and returns the hex private key it holds.
func LoadKeyFile(path string, password string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read key file %s", path)
	}

	key, err := DecryptKey(data, password)
	if err != nil {
		return "", errors.Wrapf(err, "failed to decrypt key file %s", path)
	}
	defer util.Wipe(key)

	return hex.EncodeToString(key), nil
}

// DecryptKey decrypts the private key of an Ethereum keystore v3 JSON document.
func DecryptKey(data []byte, password string) ([]byte, error) {
	var keyJSON KeyJSON
	if err := json.Unmarshal(data, &keyJSON); err != nil {
		return nil, errors.Wrap(err, "failed to parse keystore JSON")
	}

	if keyJSON.Version != version {
		return nil, errors.Errorf("unsupported keystore version %d", keyJSON.Version)
	}
	if keyJSON.Crypto.Cipher != cipherName {
		return nil, errors.Errorf("unsupported cipher %q", keyJSON.Crypto.Cipher)
	}
	if keyJSON.Crypto.KDF != kdfName {
		return nil, errors.Errorf("unsupported key derivation function %q", keyJSON.Crypto.KDF)
	}

	salt, err := hex.DecodeString(keyJSON.Crypto.KDFParams.Salt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode salt")
	}

	//nolint:varnamelen // iv is a common abbreviation for initialization vector
	iv, err := hex.DecodeString(keyJSON.Crypto.CipherParams.IV)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode IV")
	}

	ciphertext, err := hex.DecodeString(keyJSON.Crypto.Ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ciphertext")
	}

	expectedMAC, err := hex.DecodeString(keyJSON.Crypto.MAC)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode MAC")
	}

	params := keyJSON.Crypto.KDFParams
	//nolint:mnd // the MAC key is derivedKey[16:32]
	if params.DKLen < 32 {
		return nil, errors.Errorf("derived key length %d is too short", params.DKLen)
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, params.DKLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key")
	}
	defer util.Wipe(derivedKey)

	if subtle.ConstantTimeCompare(calculateMAC(derivedKey[16:32], ciphertext), expectedMAC) != 1 {
		return nil, ErrInvalidPassword
	}

	return decryptAES128CTR(derivedKey[:16], iv, ciphertext)
}

// decryptAES128CTR decrypts data using AES-128-CTR mode
//
//nolint:varnamelen // iv is a common abbreviation for initialization vector
func decryptAES128CTR(key []byte, iv []byte, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}
	if len(iv) != block.BlockSize() {
		return nil, errors.Errorf("invalid IV length %d", len(iv))
	}

	plaintext := make([]byte, len(ciphertext))
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(plaintext, ciphertext)

	return plaintext, nil
}

// calculateMAC is Keccak-256(derivedKey[16:32] || ciphertext).
func calculateMAC(key []byte, ciphertext []byte) []byte {
	return crypto.Keccak256(key, ciphertext)
}

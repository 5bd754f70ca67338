package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github/chapool/go-sweeper/internal/util"
	"golang.org/x/crypto/scrypt"
)

// EncryptKey encrypts a raw private key into Ethereum keystore v3 JSON.
func EncryptKey(privateKey []byte, password string, params ScryptParams) ([]byte, error) {
	ecdsaKey, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}

	//nolint:mnd // the MAC key is derivedKey[16:32]
	if params.DKLen < 32 {
		return nil, errors.Errorf("derived key length %d is too short", params.DKLen)
	}

	//nolint:mnd // 32 is the standard salt size for scrypt
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}

	//nolint:mnd // 16 is the standard IV size for AES-128-CTR
	//nolint:varnamelen // iv is a common abbreviation for initialization vector
	iv := make([]byte, 16)
	if _, err := rand.Read(iv); err != nil {
		return nil, errors.Wrap(err, "failed to generate IV")
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, params.DKLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key")
	}
	defer util.Wipe(derivedKey)

	ciphertext, err := encryptAES128CTR(derivedKey[:16], iv, privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encrypt key")
	}

	keyJSON := KeyJSON{
		Address: strings.ToLower(strings.TrimPrefix(crypto.PubkeyToAddress(ecdsaKey.PublicKey).Hex(), "0x")),
		Version: version,
		ID:      uuid.New().String(),
	}

	keyJSON.Crypto.Ciphertext = hex.EncodeToString(ciphertext)
	keyJSON.Crypto.CipherParams.IV = hex.EncodeToString(iv)
	keyJSON.Crypto.Cipher = cipherName
	keyJSON.Crypto.KDF = kdfName
	keyJSON.Crypto.KDFParams.DKLen = params.DKLen
	keyJSON.Crypto.KDFParams.Salt = hex.EncodeToString(salt)
	keyJSON.Crypto.KDFParams.N = params.N
	keyJSON.Crypto.KDFParams.R = params.R
	keyJSON.Crypto.KDFParams.P = params.P
	keyJSON.Crypto.MAC = hex.EncodeToString(calculateMAC(derivedKey[16:32], ciphertext))

	return json.Marshal(keyJSON)
}

// encryptAES128CTR encrypts data using AES-128-CTR mode
//
//nolint:varnamelen // iv is a common abbreviation for initialization vector
func encryptAES128CTR(key []byte, iv []byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	ciphertext := make([]byte, len(plaintext))
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(ciphertext, plaintext)

	return ciphertext, nil
}

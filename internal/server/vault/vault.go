// Package vault implements the credential and key vault: password hashing
// for login and password-derived symmetric encryption of private-key blobs.
//
// Private keys are never stored in plaintext. The encryption key is derived
// from the server secret concatenated with the user's plaintext password, so
// a blob can only be reopened by someone who supplies the same password —
// the stored password hash is useless for decryption. Rotating the server
// secret invalidates all previously encrypted blobs; this is a documented
// operational constraint, not a bug.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/svoychat/svoychat/internal/common"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
)

type Vault struct {
	secret []byte
}

// New constructs a Vault bound to the process-wide server secret.
func New(serverSecret string) *Vault {
	return &Vault{secret: []byte(serverSecret)}
}

// HashPassword returns a salted bcrypt hash of the plaintext password.
// The cost factor is bcrypt's default, which is safe for interactive login.
func (v *Vault) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
// bcrypt's comparison is constant-time over the derived digest.
func (v *Vault) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// deriveKey stretches serverSecret||password into an AES-256 key with
// argon2id (1 pass, 64 MiB, 4 lanes).
func (v *Vault) deriveKey(password string, salt []byte) []byte {
	material := make([]byte, 0, len(v.secret)+len(password))
	material = append(material, v.secret...)
	material = append(material, password...)
	key := argon2.IDKey(material, salt, 1, 64*1024, 4, keySize)
	common.WipeByteArray(material)
	return key
}

// EncryptPrivateKey seals privateKey with AES-GCM under a key derived from
// the vault secret and the user's plaintext password. The returned blob is
// base64(salt || nonce || ciphertext) and embeds everything needed to
// decrypt besides the password itself.
func (v *Vault) EncryptPrivateKey(privateKey, password string) (string, error) {
	salt := common.GenerateRandByteArray(saltSize)
	nonce := common.GenerateRandByteArray(nonceSize)

	key := v.deriveKey(password, salt)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	ciphertext := aesgcm.Seal(nil, nonce, []byte(privateKey), nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// DecryptPrivateKey reverses EncryptPrivateKey. Any integrity or format
// failure — wrong password, corrupted blob, rotated vault secret — yields
// common.ErrDecryptionFailed; this is an expected, recoverable outcome.
func (v *Vault) DecryptPrivateKey(blob, password string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: bad blob encoding", common.ErrDecryptionFailed)
	}
	if len(raw) < saltSize+nonceSize {
		return "", fmt.Errorf("%w: blob too short", common.ErrDecryptionFailed)
	}

	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+nonceSize]
	ciphertext := raw[saltSize+nonceSize:]

	key := v.deriveKey(password, salt)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}

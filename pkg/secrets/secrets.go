package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the AES-256 key length.
const KeySize = 32

// DeriveKey stretches passphrase into a KeySize key bound to purpose.
func DeriveKey(passphrase, purpose string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(passphrase), nil, []byte(purpose)), key); err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}
	return key, nil
}

// Seal encrypts data and prepends the random nonce.
func Seal(key, data []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return aead.Seal(nonce, nonce, data, nil), nil
}

// Open reverses Seal. Tampered input or a wrong key yield
// ErrDecryptionFailed.
func Open(key, sealed []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	n := aead.NonceSize()
	if len(sealed) < n+aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	data, err := aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return data, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

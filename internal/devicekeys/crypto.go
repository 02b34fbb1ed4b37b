package devicekeys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/kowhai/internal/errors"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	symmetricKeySize = 32
	nonceSize        = 24
)

// CreateSymmetricKey generates a new random symmetric key.
func CreateSymmetricKey() ([]byte, error) {
	symKey := make([]byte, symmetricKeySize)
	if _, err := rand.Read(symKey); err != nil {
		return nil, err
	}
	return symKey, nil
}

// Zero overwrites key material.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// WrapSymmetricKey encrypts symKey for publicKey and returns it base64 encoded.
func WrapSymmetricKey(symKey []byte, publicKey *rsa.PublicKey) (string, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, publicKey, symKey, nil)
	if err != nil {
		return "", fmt.Errorf("failed to wrap symmetric key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// UnwrapSymmetricKey decrypts a key produced by WrapSymmetricKey.
func UnwrapSymmetricKey(wrapped string, privateKey *rsa.PrivateKey) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid encoding", kerrors.ErrKeyDecryptFailed)
	}
	symKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, privateKey, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrKeyDecryptFailed, err)
	}
	if len(symKey) != symmetricKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", kerrors.ErrKeyDecryptFailed, symmetricKeySize, len(symKey))
	}
	return symKey, nil
}

// EncryptNote seals plaintext with symKey.
func EncryptNote(symKey []byte, plaintext []byte) (string, error) {
	if len(symKey) != symmetricKeySize {
		return "", fmt.Errorf("invalid symmetric key length: expected %d bytes, got %d bytes", symmetricKeySize, len(symKey))
	}
	var key [symmetricKeySize]byte
	copy(key[:], symKey)
	defer Zero(key[:])

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptNote opens data produced by EncryptNote.
func DecryptNote(symKey []byte, data string) ([]byte, error) {
	if len(symKey) != symmetricKeySize {
		return nil, fmt.Errorf("invalid symmetric key length: expected %d bytes, got %d bytes", symmetricKeySize, len(symKey))
	}
	sealed, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid encoding", kerrors.ErrNoteDecryptFailed)
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: too short", kerrors.ErrNoteDecryptFailed)
	}

	var key [symmetricKeySize]byte
	copy(key[:], symKey)
	defer Zero(key[:])

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &key)
	if !ok {
		return nil, kerrors.ErrNoteDecryptFailed
	}
	return plaintext, nil
}

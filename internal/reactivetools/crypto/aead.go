// Package crypto implements the two authenticated-encryption suites the EM
// wire protocol can select per connection and per module (AES-GCM-128 and
// Spongent-128), plus the MAC/hash helpers used for SetKey verification and
// TrustZone module-key derivation.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// KeySize is the key length required by both suites (16 bytes / 128 bits).
const KeySize = 16

// TagSize is the authentication tag length appended to ciphertext by both
// suites.
const TagSize = 16

// gcmNonce is the fixed 12-byte zero nonce used by the AES-GCM-128 suite.
// Freshness comes from the 16-bit message nonce folded into the associated
// data by the caller, not from the AEAD nonce itself.
var gcmNonce = make([]byte, 12)

// Encryption identifies which AEAD suite a connection or module uses. The
// numeric value is carried on the wire as part of SetKey's associated data.
type Encryption uint8

const (
	EncryptionAESGCM128   Encryption = 0
	EncryptionSpongent128 Encryption = 1
)

// AEAD is the shared wrap/unwrap interface both suites implement.
type AEAD interface {
	// Seal encrypts and authenticates plaintext under ad, returning
	// ciphertext with the tag appended.
	Seal(key, ad, plaintext []byte) ([]byte, error)
	// Open authenticates and decrypts a Seal output. Returns an error iff
	// the tag check fails (a fatal attestation/key mismatch to the caller).
	Open(key, ad, sealed []byte) ([]byte, error)
}

// ForEncryption returns the AEAD implementation for e.
func ForEncryption(e Encryption) (AEAD, error) {
	switch e {
	case EncryptionAESGCM128:
		return aesGCM128{}, nil
	case EncryptionSpongent128:
		return spongent128{}, nil
	default:
		return nil, fmt.Errorf("crypto: unknown encryption suite %d", e)
	}
}

// aesGCM128 implements AEAD with AES-GCM, a 16-byte key and a fixed
// all-zero 12-byte nonce (the EM protocol binds freshness via AD instead).
type aesGCM128 struct{}

func (aesGCM128) Seal(key, ad, plaintext []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: aes-gcm-128 key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	return gcm.Seal(nil, gcmNonce, plaintext, ad), nil
}

func (aesGCM128) Open(key, ad, sealed []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: aes-gcm-128 key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	pt, err := gcm.Open(nil, gcmNonce, sealed, ad)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes-gcm-128 open: %w", err)
	}
	return pt, nil
}

// MACOnly seals an empty plaintext, producing a tag-only authenticator over
// ad. Used where a bare MAC is wanted rather than encryption.
func MACOnly(suite AEAD, key, ad []byte) ([]byte, error) {
	return suite.Seal(key, ad, nil)
}

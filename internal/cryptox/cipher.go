// Package cryptox protects wallet secrets at rest. Mnemonics and private
// keys are sealed with AES-GCM under a single process-wide key; the key is
// loaded once at startup, never derived from user input, and never logged.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/walletd/internal/common"
	"golang.org/x/crypto/argon2"
)

// envelopeVersion is authenticated as additional data, so a sealed blob
// cannot be silently re-labelled to another format.
const envelopeVersion = 1

const nonceSize = 12

// envelope is the self-describing sealed-blob layout. encoding/json encodes
// the byte fields as base64, and the whole envelope is base64-encoded again
// so a sealed secret is a single opaque string in storage and transport.
type envelope struct {
	Version    int    `json:"v"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Sealer performs authenticated encryption of secret strings with a fixed
// key. A single Sealer is safe for concurrent use: the key is immutable and
// every Seal call draws an independent random nonce.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from an AES key of 16, 24, or 32 bytes.
func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random nonce and returns the
// base64-encoded envelope. Nonce reuse under one key breaks GCM, so the
// nonce is always drawn from the system random source; an exhausted source
// is fatal and reported as common.ErrEntropyFailure.
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrEntropyFailure, err)
	}

	ciphertext := s.aead.Seal(nil, nonce, []byte(plaintext), versionAAD(envelopeVersion))

	blob, err := json.Marshal(envelope{Version: envelopeVersion, Nonce: nonce, Ciphertext: ciphertext})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Open decrypts a blob produced by Seal. Tampered data, a truncated or
// malformed envelope, and a wrong key all yield common.ErrDecryptionFailed;
// partial plaintext is never returned.
func (s *Sealer) Open(sealed string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", common.ErrDecryptionFailed
	}

	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return "", common.ErrDecryptionFailed
	}
	if len(env.Nonce) != nonceSize {
		return "", common.ErrDecryptionFailed
	}

	plaintext, err := s.aead.Open(nil, env.Nonce, env.Ciphertext, versionAAD(env.Version))
	if err != nil {
		return "", common.ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func versionAAD(version int) []byte {
	return []byte{byte(version)}
}

// DeriveKey derives a 32-byte sealing key from a passphrase and salt using
// argon2id. Same inputs always produce the same key, so the derived key can
// be reconstructed at every process start.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

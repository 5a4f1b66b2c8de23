// Package vault encrypts document payloads at rest with AES-256-GCM and
// stores one self-describing ciphertext blob per document. The key lives in
// a single file outside version control and is read-only after startup.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"backend/internal/apperr"
)

const (
	keySize   = 32 // AES-256
	blobExt   = ".enc"
	tagSize   = 16
	nonceSize = 12
)

// envelope is the on-disk blob layout: nonce, GCM tag and ciphertext as hex.
type envelope struct {
	IV   string `json:"iv"`
	Tag  string `json:"tag"`
	Data string `json:"data"`
}

// Vault encrypts and persists document blobs under a single directory.
type Vault struct {
	dir string
	key []byte
}

// Open loads the encryption key from keyFile, generating and persisting a
// fresh one on first run, and ensures dir exists. A key file that exists but
// cannot be used (unreadable, wrong size) is a fatal startup error.
func Open(dir, keyFile string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("vault: create blob dir: %w", err)
	}

	key, err := os.ReadFile(keyFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		key = make([]byte, keySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("vault: generate key: %w", err)
		}
		if err := os.WriteFile(keyFile, key, 0o600); err != nil {
			return nil, fmt.Errorf("vault: persist key: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("%w: read key file: %v", apperr.ErrIntegrity, err)
	case len(key) != keySize:
		return nil, fmt.Errorf("%w: key file has %d bytes, want %d", apperr.ErrIntegrity, len(key), keySize)
	}

	return &Vault{dir: dir, key: key}, nil
}

// Store encrypts plaintext under a fresh random nonce and writes the blob
// under name. The caller owns name generation; the vault never logs or
// returns key material.
func (v *Vault) Store(name string, plaintext []byte) error {
	gcm, err := v.aead()
	if err != nil {
		return err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("vault: nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	// Seal appends the tag; split it out so the blob stays self-describing.
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	env := envelope{
		IV:   hex.EncodeToString(nonce),
		Tag:  hex.EncodeToString(tag),
		Data: hex.EncodeToString(ciphertext),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("vault: encode blob: %w", err)
	}

	if err := os.WriteFile(v.blobPath(name), raw, 0o640); err != nil {
		return fmt.Errorf("vault: write blob: %w", err)
	}
	return nil
}

// Retrieve reads the blob stored under name, verifies the authentication
// tag and returns the plaintext. A missing blob yields ErrNotFound; any
// tamper or malformed envelope yields ErrIntegrity, never partial data.
func (v *Vault) Retrieve(name string) ([]byte, error) {
	raw, err := os.ReadFile(v.blobPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: document %s", apperr.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("vault: read blob: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed blob %s", apperr.ErrIntegrity, name)
	}

	nonce, err1 := hex.DecodeString(env.IV)
	tag, err2 := hex.DecodeString(env.Tag)
	ciphertext, err3 := hex.DecodeString(env.Data)
	if err1 != nil || err2 != nil || err3 != nil || len(nonce) != nonceSize || len(tag) != tagSize {
		return nil, fmt.Errorf("%w: malformed blob %s", apperr.ErrIntegrity, name)
	}

	gcm, err := v.aead()
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: document %s failed authentication", apperr.ErrIntegrity, name)
	}
	return plaintext, nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: gcm: %w", err)
	}
	return gcm, nil
}

func (v *Vault) blobPath(name string) string {
	// Storage names are generated server-side, but keep path traversal out anyway.
	return filepath.Join(v.dir, filepath.Base(name)+blobExt)
}

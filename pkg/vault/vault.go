// Package vault encrypts the vendor token pair at rest. It has no knowledge
// of what the tokens mean; callers hand it opaque strings.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	shared "github.com/dylannguyen2/annas-app-sub001/pkg"
	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
)

// KeySize is the required length of the AES-256 key.
const KeySize = 32

// ErrDecryption indicates a ciphertext failed authentication: tampered blob,
// wrong key, or corrupted storage. Never returned for a plain lookup miss.
var ErrDecryption = errors.New("vault: decryption failed")

// Vault seals and opens token blobs with AES-256-GCM. The key is a 32-byte
// process-wide secret read once at startup.
type Vault struct {
	aead cipher.AEAD
}

// New builds a Vault from a raw 32-byte key. Key problems are configuration
// errors and are surfaced immediately rather than on first use.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// NewFromHex builds a Vault from a hex-encoded key, the form it takes in the
// VAULT_KEY environment variable.
func NewFromHex(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("vault key is not valid hex: %w", err)
	}
	return New(key)
}

// Encrypt seals plaintext with a fresh random nonce and serializes the result
// as "<nonceHex>:<tagHex>:<cipherHex>". Consumers must treat the string as
// opaque.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - v.aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	), nil
}

// Decrypt opens a blob produced by Encrypt. Any malformed blob or failed
// authentication tag yields ErrDecryption; garbage is never silently returned.
func (v *Vault) Decrypt(blob string) (string, error) {
	parts := strings.Split(blob, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected nonce:tag:ciphertext, got %d parts", ErrDecryption, len(parts))
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != v.aead.NonceSize() {
		return "", fmt.Errorf("%w: bad nonce encoding", ErrDecryption)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: bad tag encoding", ErrDecryption)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrDecryption)
	}

	plaintext, err := v.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plaintext), nil
}

// Store encrypts both tokens independently and persists the credential row.
// Each call uses fresh nonces, so two stores of the same pair never produce
// the same blobs.
func (v *Vault) Store(ctx context.Context, store shared.RecordStore, ownerID string, pair domain.TokenPair) error {
	enc1, err := v.Encrypt(pair.OAuth1Token)
	if err != nil {
		return fmt.Errorf("encrypt oauth1 token: %w", err)
	}
	enc2, err := v.Encrypt(pair.OAuth2Token)
	if err != nil {
		return fmt.Errorf("encrypt oauth2 token: %w", err)
	}

	cred := &domain.Credential{
		OwnerID:         ownerID,
		EncryptedOAuth1: enc1,
		EncryptedOAuth2: enc2,
	}
	if existing, err := store.GetCredential(ctx, ownerID); err == nil {
		cred.LastSyncAt = existing.LastSyncAt
	}

	if err := store.SetCredential(ctx, cred); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	return nil
}

// Load fetches and decrypts the credential row for a user. A lookup miss
// surfaces as shared.ErrNotFound; a failed tag check as ErrDecryption.
func (v *Vault) Load(ctx context.Context, store shared.RecordStore, ownerID string) (domain.TokenPair, error) {
	cred, err := store.GetCredential(ctx, ownerID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("load credential: %w", err)
	}

	tok1, err := v.Decrypt(cred.EncryptedOAuth1)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("oauth1 token: %w", err)
	}
	tok2, err := v.Decrypt(cred.EncryptedOAuth2)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("oauth2 token: %w", err)
	}

	return domain.TokenPair{OAuth1Token: tok1, OAuth2Token: tok2}, nil
}

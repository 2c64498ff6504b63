package vault

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	shared "github.com/dylannguyen2/annas-app-sub001/pkg"
	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
	"github.com/dylannguyen2/annas-app-sub001/pkg/testing/mocks"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, KeySize)
}

func TestNewRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name   string
		keyLen int
	}{
		{name: "empty key", keyLen: 0},
		{name: "too short", keyLen: 16},
		{name: "too long", keyLen: 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(bytes.Repeat([]byte{0x01}, tt.keyLen))
			if err == nil {
				t.Errorf("New() accepted %d-byte key", tt.keyLen)
			}
		})
	}
}

func TestNewFromHex(t *testing.T) {
	v, err := NewFromHex(hex.EncodeToString(testKey()))
	if err != nil {
		t.Fatalf("NewFromHex() error: %v", err)
	}
	if v == nil {
		t.Fatal("NewFromHex() returned nil vault")
	}

	if _, err := NewFromHex("not-hex"); err == nil {
		t.Error("NewFromHex() accepted non-hex input")
	}
	if _, err := NewFromHex("abcd"); err == nil {
		t.Error("NewFromHex() accepted short key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v, err := New(testKey())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	plaintexts := []string{
		"",
		"oauth1-token-value",
		`{"token":"abc","secret":"xyz"}`,
		strings.Repeat("long", 512),
	}

	for _, plain := range plaintexts {
		blob, err := v.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt(%q) error: %v", plain, err)
		}
		if parts := strings.Split(blob, ":"); len(parts) != 3 {
			t.Fatalf("Encrypt(%q) = %q, want nonce:tag:ciphertext", plain, blob)
		}

		got, err := v.Decrypt(blob)
		if err != nil {
			t.Fatalf("Decrypt() error: %v", err)
		}
		if got != plain {
			t.Errorf("round trip = %q, want %q", got, plain)
		}
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	v, _ := New(testKey())

	a, err := v.Encrypt("same-token")
	if err != nil {
		t.Fatal(err)
	}
	b, err := v.Encrypt("same-token")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical blobs")
	}
}

func TestDecryptDetectsTampering(t *testing.T) {
	v, _ := New(testKey())

	blob, err := v.Encrypt("sensitive-token")
	if err != nil {
		t.Fatal(err)
	}

	// Flipping any single hex nibble in any segment must fail authentication.
	for i := 0; i < len(blob); i++ {
		if blob[i] == ':' {
			continue
		}
		flipped := []byte(blob)
		if flipped[i] == '0' {
			flipped[i] = '1'
		} else {
			flipped[i] = '0'
		}

		if _, err := v.Decrypt(string(flipped)); !errors.Is(err, ErrDecryption) {
			t.Fatalf("Decrypt with byte %d flipped: got %v, want ErrDecryption", i, err)
		}
	}
}

func TestDecryptRejectsMalformedBlobs(t *testing.T) {
	v, _ := New(testKey())

	tests := []string{
		"",
		"justonepart",
		"two:parts",
		"a:b:c:d",
		"zz:zz:zz",       // not hex
		"abcd:ef01:2345", // nonce too short
	}

	for _, blob := range tests {
		if _, err := v.Decrypt(blob); !errors.Is(err, ErrDecryption) {
			t.Errorf("Decrypt(%q) = %v, want ErrDecryption", blob, err)
		}
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	v1, _ := New(testKey())
	v2, _ := New(bytes.Repeat([]byte{0x24}, KeySize))

	blob, err := v1.Encrypt("token")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v2.Decrypt(blob); !errors.Is(err, ErrDecryption) {
		t.Errorf("Decrypt with wrong key = %v, want ErrDecryption", err)
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	v, _ := New(testKey())
	store := mocks.NewMemStore()
	ctx := context.Background()

	pair := domain.TokenPair{OAuth1Token: "exchange-token", OAuth2Token: "session-token"}
	if err := v.Store(ctx, store, "user-1", pair); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	// Persisted blobs must not contain cleartext tokens.
	cred := store.Credentials["user-1"]
	if cred == nil {
		t.Fatal("credential row not persisted")
	}
	if strings.Contains(cred.EncryptedOAuth1, "exchange-token") || strings.Contains(cred.EncryptedOAuth2, "session-token") {
		t.Error("token persisted in cleartext")
	}

	got, err := v.Load(ctx, store, "user-1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != pair {
		t.Errorf("Load() = %+v, want %+v", got, pair)
	}
}

func TestLoadMissingCredential(t *testing.T) {
	v, _ := New(testKey())
	store := mocks.NewMemStore()

	_, err := v.Load(context.Background(), store, "nobody")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("Load() for unknown user = %v, want ErrNotFound", err)
	}
}

func TestLoadCorruptedCredential(t *testing.T) {
	v, _ := New(testKey())
	store := mocks.NewMemStore()
	ctx := context.Background()

	if err := v.Store(ctx, store, "user-1", domain.TokenPair{OAuth1Token: "a", OAuth2Token: "b"}); err != nil {
		t.Fatal(err)
	}
	store.Credentials["user-1"].EncryptedOAuth2 = "0000:0000:0000"

	if _, err := v.Load(ctx, store, "user-1"); !errors.Is(err, ErrDecryption) {
		t.Errorf("Load() with corrupted blob = %v, want ErrDecryption", err)
	}
}

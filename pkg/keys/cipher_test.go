package keys

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testMasterKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestMasterKeyCipher_RoundTrip(t *testing.T) {
	c, err := NewMasterKeyCipher(testMasterKey())
	if err != nil {
		t.Fatalf("NewMasterKeyCipher failed: %v", err)
	}

	share := "opaque-user-share-blob"
	sealed, err := c.Encrypt(share)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if sealed == share {
		t.Fatal("sealed share equals plaintext")
	}

	opened, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if opened != share {
		t.Fatalf("expected %q, got %q", share, opened)
	}
}

func TestMasterKeyCipher_NonceUnique(t *testing.T) {
	c, err := NewMasterKeyCipher(testMasterKey())
	if err != nil {
		t.Fatalf("NewMasterKeyCipher failed: %v", err)
	}

	first, err := c.Encrypt("same-share")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	second, err := c.Encrypt("same-share")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if first == second {
		t.Error("two encryptions of the same share produced identical ciphertexts")
	}
}

func TestMasterKeyCipher_DecryptTampered(t *testing.T) {
	c, err := NewMasterKeyCipher(testMasterKey())
	if err != nil {
		t.Fatalf("NewMasterKeyCipher failed: %v", err)
	}

	sealed, err := c.Encrypt("share")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := c.Decrypt(tampered); err == nil {
		t.Error("expected decryption of tampered ciphertext to fail")
	}
}

func TestNewMasterKeyCipher_BadKeySize(t *testing.T) {
	if _, err := NewMasterKeyCipher(make([]byte, 16)); err == nil {
		t.Error("expected error for 16-byte master key")
	}
}

func TestMasterKeyFromBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(testMasterKey())
	key, err := MasterKeyFromBase64(encoded)
	if err != nil {
		t.Fatalf("MasterKeyFromBase64 failed: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key))
	}

	if _, err := MasterKeyFromBase64("not-base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}

	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := MasterKeyFromBase64(short); err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Errorf("expected size error, got %v", err)
	}
}

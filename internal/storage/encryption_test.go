package storage

import (
	"encoding/base64"
	"testing"
)

func TestEncryption(t *testing.T) {
	// Generate a 32-byte key (AES-256)
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	enc, err := NewEncryption(key)
	if err != nil {
		t.Fatalf("Failed to create encryption: %v", err)
	}

	// Test string encryption/decryption
	plaintext := []byte("my-secret-api-key-12345")
	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Failed to decrypt: %v", err)
	}

	if string(decrypted) != string(plaintext) {
		t.Errorf("Decrypted text doesn't match original. Got %s, want %s", decrypted, plaintext)
	}
}

func TestEncryptionFromBase64(t *testing.T) {
	// Generate a key
	keyBase64, err := GenerateKey(32)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	enc, err := NewEncryptionFromBase64(keyBase64)
	if err != nil {
		t.Fatalf("Failed to create encryption from base64: %v", err)
	}

	// Test encryption/decryption
	plaintext := []byte("test-data")
	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Failed to decrypt: %v", err)
	}

	if string(decrypted) != string(plaintext) {
		t.Errorf("Decrypted text doesn't match original")
	}
}

func TestEncryptionFromPassphrase(t *testing.T) {
	salt := []byte("0123456789abcdef")

	enc1, err := NewEncryptionFromPassphrase("correct horse", salt)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	enc2, err := NewEncryptionFromPassphrase("correct horse", salt)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}

	ciphertext, err := enc1.Encrypt([]byte("sk-live"))
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	decrypted, err := enc2.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Same passphrase and salt should decrypt: %v", err)
	}
	if string(decrypted) != "sk-live" {
		t.Errorf("Got %q, want sk-live", decrypted)
	}

	wrong, _ := NewEncryptionFromPassphrase("battery staple", salt)
	if _, err := wrong.Decrypt(ciphertext); err == nil {
		t.Error("Expected error decrypting with a different passphrase")
	}

	if _, err := NewEncryptionFromPassphrase("", salt); err == nil {
		t.Error("Expected error for empty passphrase")
	}
}

func TestGenerateKey(t *testing.T) {
	// Test AES-256 (32 bytes)
	key, err := GenerateKey(32)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		t.Fatalf("Generated key is not valid base64: %v", err)
	}

	if len(decoded) != 32 {
		t.Errorf("Generated key has wrong length. Got %d, want 32", len(decoded))
	}

	// Test that we can use the generated key
	enc, err := NewEncryptionFromBase64(key)
	if err != nil {
		t.Fatalf("Failed to create encryption with generated key: %v", err)
	}

	plaintext := []byte("test")
	ciphertext, _ := enc.Encrypt(plaintext)
	decrypted, _ := enc.Decrypt(ciphertext)

	if string(decrypted) != string(plaintext) {
		t.Errorf("Encryption with generated key failed")
	}
}

func TestInvalidKeySize(t *testing.T) {
	// Test invalid key size
	_, err := NewEncryption([]byte("too-short"))
	if err == nil {
		t.Error("Expected error for invalid key size")
	}

	// Test invalid key size for GenerateKey
	_, err = GenerateKey(20)
	if err == nil {
		t.Error("Expected error for invalid key size in GenerateKey")
	}
}

func TestDecryptGarbage(t *testing.T) {
	enc, _ := NewEncryption(make([]byte, 32))

	if _, err := enc.Decrypt("not base64!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
	if _, err := enc.Decrypt("AAAA"); err == nil {
		t.Error("Expected error for short ciphertext")
	}
}

package cipher

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		plaintext  []byte
		passphrase []byte
	}{
		{"short plaintext", []byte("hello"), []byte("pass1")},
		{"empty plaintext", []byte{}, []byte("pass2")},
		{"exact block size", bytes.Repeat([]byte("x"), 16), []byte("pass3")},
		{"multi-block", bytes.Repeat([]byte("warren"), 500), []byte("a very long passphrase indeed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := Encrypt(tt.plaintext, tt.passphrase)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			if bytes.Equal(ciphertext, tt.plaintext) {
				t.Error("Encrypt() returned plaintext unchanged")
			}

			plain, err := Decrypt(ciphertext, tt.passphrase)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}

			if !bytes.Equal(plain, tt.plaintext) {
				t.Errorf("Decrypt() = %q, want %q", plain, tt.plaintext)
			}
		})
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	ciphertext, err := Encrypt([]byte("secret payload"), []byte("correct"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	plain, err := Decrypt(ciphertext, []byte("incorrect"))
	// Either an unpad error surfaces, or (rarely) padding happens to look
	// valid and garbage plaintext is returned; either way it must not
	// equal the original.
	if err == nil && bytes.Equal(plain, []byte("secret payload")) {
		t.Error("Decrypt() succeeded with the wrong passphrase")
	}
}

func TestDecryptTooShort(t *testing.T) {
	if _, err := Decrypt([]byte("short"), []byte("pass")); err == nil {
		t.Error("Decrypt() with too-short ciphertext should fail")
	}
}

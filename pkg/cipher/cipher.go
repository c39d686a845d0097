// Package cipher implements the symmetric envelope used to optionally
// encrypt catalog and manifest files: aes-256-cbc with a PKCS#7-padded
// plaintext and a random IV prepended to the ciphertext. The key is the
// SHA-256 digest of the passphrase.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// Name is the only cipher this package implements; it is also the value
// expected in repository/stanza configuration.
const Name = "aes-256-cbc"

// deriveKey turns a passphrase into a 32-byte AES-256 key.
func deriveKey(passphrase []byte) [32]byte {
	return sha256.Sum256(passphrase)
}

// Encrypt encrypts plaintext with passphrase, returning IV||ciphertext.
func Encrypt(plaintext, passphrase []byte) ([]byte, error) {
	key := deriveKey(passphrase)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cipher: create AES cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, block.BlockSize())

	iv := make([]byte, block.BlockSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("cipher: generate iv: %w", err)
	}

	out := make([]byte, len(iv)+len(padded))
	copy(out, iv)

	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(out[len(iv):], padded)

	return out, nil
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertext, passphrase []byte) ([]byte, error) {
	key := deriveKey(passphrase)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cipher: create AES cipher: %w", err)
	}

	blockSize := block.BlockSize()
	if len(ciphertext) < blockSize || (len(ciphertext)-blockSize)%blockSize != 0 {
		return nil, fmt.Errorf("cipher: ciphertext has invalid length %d", len(ciphertext))
	}

	iv := ciphertext[:blockSize]
	body := ciphertext[blockSize:]

	out := make([]byte, len(body))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(out, body)

	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cipher: cannot unpad empty data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("cipher: invalid padding")
	}
	return data[:len(data)-padLen], nil
}

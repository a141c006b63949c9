package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"mediapack/internal/failure"
)

const (
	SaltSize   = 16
	NonceSize  = 12
	TagSize    = 16
	KeySize    = 32
	Iterations = 200_000
	// HeaderSize is the fixed prefix ahead of the ciphertext.
	HeaderSize = SaltSize + NonceSize + TagSize
)

var (
	// ErrTooShort reports an envelope that cannot hold its fixed header.
	ErrTooShort = failure.Wrap(failure.ErrMalformedContainer, "envelope", "parse", "payload shorter than envelope header", nil)
	// ErrAuthentication reports a tag mismatch: wrong password or tampered bytes.
	ErrAuthentication = failure.Wrap(failure.ErrAuthentication, "envelope", "decrypt", "tag mismatch", nil)
)

// randReader is swapped in tests that need deterministic salts and nonces.
var randReader io.Reader = rand.Reader

// Encrypt seals plaintext under a key derived from password and returns
// salt‖nonce‖tag‖ciphertext. Salt and nonce are fresh per call.
func Encrypt(plaintext []byte, password string) ([]byte, error) {
	header := make([]byte, SaltSize+NonceSize, HeaderSize+len(plaintext))
	if _, err := io.ReadFull(randReader, header); err != nil {
		return nil, failure.Wrap(failure.ErrIO, "envelope", "encrypt", "read random salt and nonce", err)
	}
	salt := header[:SaltSize]
	nonce := header[SaltSize : SaltSize+NonceSize]

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	// Seal emits ciphertext‖tag; the envelope stores the tag first.
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(plaintext)]
	tag := sealed[len(plaintext):]

	out := append(header, tag...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt opens an envelope produced by Encrypt. It never returns partial
// plaintext: any tag mismatch yields ErrAuthentication.
func Decrypt(envelope []byte, password string) ([]byte, error) {
	if len(envelope) < HeaderSize {
		return nil, ErrTooShort
	}
	salt := envelope[:SaltSize]
	nonce := envelope[SaltSize : SaltSize+NonceSize]
	tag := envelope[SaltSize+NonceSize : HeaderSize]
	ciphertext := envelope[HeaderSize:]

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// DeriveKey runs PBKDF2-HMAC-SHA256 with the fixed iteration count.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

func newAEAD(password string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(password, salt))
	if err != nil {
		return nil, failure.Wrap(failure.ErrIO, "envelope", "cipher", "initialise block cipher", err)
	}
	aead, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, failure.Wrap(failure.ErrIO, "envelope", "cipher", "initialise gcm", err)
	}
	if aead.NonceSize() != NonceSize {
		return nil, fmt.Errorf("envelope: unexpected nonce size %d", aead.NonceSize())
	}
	return aead, nil
}

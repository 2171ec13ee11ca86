// Package crypto provides envelope encryption for sensitive deal data.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrDecryptionFailed is returned when decryption fails due to a tampered
	// ciphertext, a wrong key, or a malformed IV.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")
)

// devKeyLabel is hashed to derive the fallback key when no secret is
// configured. The fallback exists so local development works without any
// setup; production deployments must set ENCRYPTION_KEY.
const devKeyLabel = "dev-key"

// Envelope is a sealed payload: AES-256-GCM ciphertext (with the auth tag
// appended) plus the IV it was sealed under. The two must travel together;
// a ciphertext without its IV cannot be opened.
type Envelope struct {
	Ciphertext []byte `json:"ciphertext,omitempty"`
	IV         []byte `json:"iv,omitempty"`
}

// Empty reports whether the envelope holds no payload.
func (e Envelope) Empty() bool {
	return len(e.Ciphertext) == 0 && len(e.IV) == 0
}

// Encryptor seals and opens envelopes with AES-256-GCM.
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor creates an encryptor from a key string. The key can be:
//   - A base64-encoded 32-byte key (e.g., from: openssl rand -base64 32)
//   - A hex-encoded 32-byte key
//   - Any passphrase (hashed to 32 bytes with SHA-256)
//
// An empty key derives a fixed development-only key. It is deterministic and
// insecure; it exists only so the engine starts without configuration.
func NewEncryptor(keyInput string) (*Encryptor, error) {
	key := normalizeKey(keyInput)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{gcm: gcm}, nil
}

// normalizeKey turns any key input into 32 usable bytes.
func normalizeKey(keyInput string) []byte {
	if keyInput == "" {
		sum := sha256.Sum256([]byte(devKeyLabel))
		return sum[:]
	}

	if decoded, err := base64.StdEncoding.DecodeString(keyInput); err == nil && len(decoded) == 32 {
		return decoded
	}
	if decoded, err := hex.DecodeString(keyInput); err == nil && len(decoded) == 32 {
		return decoded
	}

	sum := sha256.Sum256([]byte(keyInput))
	return sum[:]
}

// Seal encrypts plaintext under a fresh random 12-byte IV and returns the
// envelope. IVs are never reused; GCM confidentiality and integrity both
// collapse under IV reuse with the same key. Empty plaintext returns an
// empty envelope (optional fields are a no-op).
func (e *Encryptor) Seal(plaintext []byte) (Envelope, error) {
	if len(plaintext) == 0 {
		return Envelope{}, nil
	}

	iv := make([]byte, e.gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return Envelope{}, fmt.Errorf("failed to generate IV: %w", err)
	}

	// Seal appends the auth tag to the ciphertext.
	ciphertext := e.gcm.Seal(nil, iv, plaintext, nil)

	return Envelope{Ciphertext: ciphertext, IV: iv}, nil
}

// Open decrypts an envelope. Empty envelopes open to nil. Tag verification
// failure, a wrong key, or a wrong-length IV return ErrDecryptionFailed.
func (e *Encryptor) Open(env Envelope) ([]byte, error) {
	if env.Empty() {
		return nil, nil
	}

	if len(env.IV) != e.gcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad IV length %d", ErrDecryptionFailed, len(env.IV))
	}
	if len(env.Ciphertext) < e.gcm.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	plaintext, err := e.gcm.Open(nil, env.IV, env.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}

	return plaintext, nil
}

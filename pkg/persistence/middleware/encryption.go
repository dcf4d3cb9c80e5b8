package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/ports"
)

// encryptedField is the envelope key the ciphertext travels under.
const encryptedField = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.CheckoutStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts the checkout
// payload with AES-GCM before it reaches the underlying store. Only the ID,
// the status, and the version stay in the clear: the ID keys the record, the
// status supports monitoring, and the version drives the store's optimistic
// concurrency check.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.CheckoutStore) ports.CheckoutStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, c *domain.Checkout) error {
	plainText, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt checkout: %w", err)
	}

	envelope := &domain.Checkout{
		ID:      c.ID,
		Status:  c.Status,
		Version: c.Version,
		Fields: map[string]any{
			encryptedField: base64.StdEncoding.EncodeToString(ciphertext),
		},
	}
	if err := m.next.Save(ctx, envelope); err != nil {
		return err
	}

	// Propagate the version bump the store applied to the envelope.
	c.Version = envelope.Version
	return nil
}

func (m *encryptionMiddleware) Load(ctx context.Context, id string) (*domain.Checkout, error) {
	envelope, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	encryptedStr, ok := envelope.Fields[encryptedField].(string)
	if !ok {
		// Fail secure: with encryption configured a plain record is a bug, not
		// a migration path.
		return nil, errors.New("checkout is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt checkout: %w", err)
	}

	var c domain.Checkout
	if err := json.Unmarshal(plainText, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted checkout: %w", err)
	}

	// The store's version is authoritative; the embedded one predates the
	// save that wrote this envelope.
	c.Version = envelope.Version
	return &c, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}

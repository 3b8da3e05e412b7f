package middleware

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/ports"
)

// sealedPrefix marks encrypted payloads.
var sealedPrefix = []byte("wfenc1:")

// ErrNotEncrypted is returned when a record holds plaintext data.
var ErrNotEncrypted = errors.New("conversation data is not encrypted")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried when the active key fails, which allows key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.ConversationStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts snapshot data and
// conversation scope with AES-GCM. Ids, flow ids and timestamps stay readable
// so stores can list and expire records.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(config.ActiveKey))
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256), got %d", i, len(k))
		}
	}
	return func(next ports.ConversationStore) ports.ConversationStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, conv *domain.Conversation) error {
	sealed := *conv
	var err error
	if sealed.Scope, err = m.seal(conv.Scope); err != nil {
		return fmt.Errorf("failed to encrypt conversation scope: %w", err)
	}
	sealed.Snapshots = make([]domain.Snapshot, len(conv.Snapshots))
	for i, s := range conv.Snapshots {
		sealed.Snapshots[i] = s
		if sealed.Snapshots[i].Data, err = m.seal(s.Data); err != nil {
			return fmt.Errorf("failed to encrypt snapshot %d: %w", s.ID, err)
		}
	}
	return m.next.Save(ctx, &sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.Scope, err = m.open(conv.Scope); err != nil {
		return nil, fmt.Errorf("failed to decrypt conversation scope: %w", err)
	}
	for i := range conv.Snapshots {
		if conv.Snapshots[i].Data, err = m.open(conv.Snapshots[i].Data); err != nil {
			return nil, fmt.Errorf("failed to decrypt snapshot %d: %w", conv.Snapshots[i].ID, err)
		}
	}
	return conv, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *encryptionMiddleware) seal(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return plain, nil
	}
	ciphertext, err := encrypt(plain, m.config.ActiveKey)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), sealedPrefix...), ciphertext...), nil
}

func (m *encryptionMiddleware) open(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	// Plaintext records are rejected rather than passed through.
	if !bytes.HasPrefix(data, sealedPrefix) {
		return nil, ErrNotEncrypted
	}
	return decryptWithRotation(data[len(sealedPrefix):], m.config.ActiveKey, m.config.FallbackKeys)
}

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
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

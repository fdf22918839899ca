package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"

	"repeater-directory/internal/config"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// EncryptedField is the at-rest form of a guest contact: AES-GCM
// ciphertext plus the envelope-encrypted data key. Stored as
// "<dek>:<ciphertext>" with the KMS key id alongside.
type EncryptedField struct {
	Ciphertext   string
	EncryptedDEK string
	KeyID        string
}

// Manager performs envelope encryption of PII fields. With KMS
// disabled (development) the data key is stored base64-encoded in
// place of a real envelope; decryptable, but not protected.
type Manager struct {
	kmsClient *kms.Client
	config    *config.Config
	keyCache  sync.Map // encrypted DEK -> plaintext DEK
}

func NewManager(cfg *config.Config, kmsClient *kms.Client) *Manager {
	return &Manager{kmsClient: kmsClient, config: cfg}
}

// EncryptField seals a plaintext value under a fresh data key.
func (m *Manager) EncryptField(ctx context.Context, plaintext string) (*EncryptedField, error) {
	dekPlain, dekSealed, keyID, err := m.generateDataKey(ctx)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(dekPlain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	encDEK := base64.StdEncoding.EncodeToString(dekSealed)
	m.keyCache.Store(encDEK, dekPlain)

	return &EncryptedField{
		Ciphertext:   base64.StdEncoding.EncodeToString(sealed),
		EncryptedDEK: encDEK,
		KeyID:        keyID,
	}, nil
}

// DecryptField reverses EncryptField, unwrapping the data key via KMS
// (cached per process).
func (m *Manager) DecryptField(ctx context.Context, field *EncryptedField) (string, error) {
	if cached, ok := m.keyCache.Load(field.EncryptedDEK); ok {
		return m.openWithKey(field.Ciphertext, cached.([]byte))
	}

	dekSealed, err := base64.StdEncoding.DecodeString(field.EncryptedDEK)
	if err != nil {
		return "", fmt.Errorf("%w: invalid DEK format", ErrDecryptionFailed)
	}

	var dekPlain []byte
	if m.config.KMS.Enabled {
		out, err := m.kmsClient.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: dekSealed})
		if err != nil {
			return "", fmt.Errorf("%w: failed to decrypt DEK: %v", ErrDecryptionFailed, err)
		}
		dekPlain = out.Plaintext
	} else {
		dekPlain = dekSealed
	}

	m.keyCache.Store(field.EncryptedDEK, dekPlain)
	return m.openWithKey(field.Ciphertext, dekPlain)
}

func (m *Manager) generateDataKey(ctx context.Context) (plain, sealed []byte, keyID string, err error) {
	if !m.config.KMS.Enabled || m.kmsClient == nil {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, nil, "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
		}
		// Dev fallback: the "sealed" DEK is the key itself.
		return key, key, "local", nil
	}

	out, err := m.kmsClient.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(m.config.KMS.KeyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to generate data key: %w", err)
	}
	return out.Plaintext, out.CiphertextBlob, m.config.KMS.KeyID, nil
}

func (m *Manager) openWithKey(ciphertext string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext format", ErrDecryptionFailed)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plain), nil
}

// ClearCache drops all cached data keys.
func (m *Manager) ClearCache() {
	m.keyCache.Range(func(key, _ interface{}) bool {
		m.keyCache.Delete(key)
		return true
	})
}

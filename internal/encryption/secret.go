package encryption

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"smsglue/internal/repository"
	"smsglue/internal/util"
)

const secretID = "key"

// SecretManager owns the lifecycle of the process secret: an explicit
// override, or a random secret persisted in the key namespace on first start.
type SecretManager struct {
	store    repository.BlobStore
	override string
}

func NewSecretManager(store repository.BlobStore, override string) *SecretManager {
	return &SecretManager{store: store, override: override}
}

// Load returns the secret, generating and persisting one when none exists.
func (m *SecretManager) Load(ctx context.Context) ([]byte, error) {
	if m.override != "" {
		util.Info("Using configured secret key")
		return []byte(m.override), nil
	}

	data, err := m.store.Load(ctx, repository.NamespaceKey, secretID)
	switch {
	case err == nil:
		if secret := bytes.TrimSpace(data); len(secret) > 0 {
			util.Info("Loaded persisted secret key")
			return secret, nil
		}
	case errors.Is(err, repository.ErrBlobNotFound):
	default:
		return nil, fmt.Errorf("failed to load secret key: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate secret key: %w", err)
	}
	secret := []byte(hex.EncodeToString(raw))

	if err := m.store.Save(ctx, repository.NamespaceKey, secretID, secret); err != nil {
		return nil, fmt.Errorf("failed to persist secret key: %w", err)
	}

	util.Warn("Generated new secret key; previously issued tokens are no longer readable",
		zap.Int("length", len(secret)))
	return secret, nil
}

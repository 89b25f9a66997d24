package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smsglue/internal/client"
	"smsglue/internal/repository"
	"smsglue/internal/util"
)

const opTimeout = 5 * time.Second

// BlobCache stores blobs as plain Redis strings under <prefix>:<namespace>:<id>.
// Blobs never expire; the provisioning TTL is enforced by the service layer.
type BlobCache struct {
	client *client.RedisClient
	prefix string
}

func NewBlobCache(client *client.RedisClient, prefix string) *BlobCache {
	if prefix == "" {
		prefix = "smsglue"
	}
	return &BlobCache{client: client, prefix: prefix}
}

func (c *BlobCache) key(ns repository.Namespace, id string) string {
	return c.prefix + ":" + string(ns) + ":" + id
}

func (c *BlobCache) Save(ctx context.Context, ns repository.Namespace, id string, data []byte) error {
	if err := repository.ValidateKey(ns, id); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.key(ns, id), data, 0); err != nil {
		util.Error("Failed to save blob",
			zap.String("namespace", string(ns)),
			util.Identifier("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to save blob: %w", err)
	}
	return nil
}

func (c *BlobCache) Load(ctx context.Context, ns repository.Namespace, id string) ([]byte, error) {
	if err := repository.ValidateKey(ns, id); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.client.GetBytes(ctx, c.key(ns, id))
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return nil, repository.ErrBlobNotFound
		}
		util.Error("Failed to load blob",
			zap.String("namespace", string(ns)),
			util.Identifier("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to load blob: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (c *BlobCache) Clear(ctx context.Context, ns repository.Namespace, id string) error {
	if err := repository.ValidateKey(ns, id); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.key(ns, id)); err != nil {
		return fmt.Errorf("failed to clear blob: %w", err)
	}
	return nil
}

func (c *BlobCache) HealthCheck(ctx context.Context) error {
	return c.client.HealthCheck(ctx)
}

func (c *BlobCache) Close() error {
	return c.client.Close()
}

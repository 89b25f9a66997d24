package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smsglue/internal/bucketing"
	"smsglue/internal/repository"
	"smsglue/internal/util"
)

// BlobStore keeps blobs as files under <root>/<namespace>/[<shard>/]<id>.
type BlobStore struct {
	root      string
	bucketing *bucketing.BucketingManager
}

// NewBlobStore creates the namespace directories under root.
func NewBlobStore(root string, bm *bucketing.BucketingManager) (*BlobStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	if bm == nil {
		bm = bucketing.NewBucketingManager(1)
	}

	for _, ns := range repository.Namespaces {
		if err := os.MkdirAll(filepath.Join(abs, string(ns)), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", ns, err)
		}
	}

	util.Info("File blob store initialized",
		zap.String("root", abs),
		zap.Int("buckets", bm.Buckets()))

	return &BlobStore{root: abs, bucketing: bm}, nil
}

func (s *BlobStore) path(ns repository.Namespace, id string) string {
	if shard := s.bucketing.Shard(id); shard != "" {
		return filepath.Join(s.root, string(ns), shard, id)
	}
	return filepath.Join(s.root, string(ns), id)
}

func (s *BlobStore) Save(ctx context.Context, ns repository.Namespace, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := repository.ValidateKey(ns, id); err != nil {
		return err
	}

	target := s.path(ns, id)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	// Write beside the target and rename so readers never see a partial blob.
	tmp := filepath.Join(dir, "."+id+".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace blob: %w", err)
	}
	return nil
}

func (s *BlobStore) Load(ctx context.Context, ns repository.Namespace, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := repository.ValidateKey(ns, id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(ns, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, repository.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (s *BlobStore) Clear(ctx context.Context, ns repository.Namespace, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := repository.ValidateKey(ns, id); err != nil {
		return err
	}

	if err := os.Remove(s.path(ns, id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear blob: %w", err)
	}
	return nil
}

// HealthCheck verifies the cache root is still a writable directory.
func (s *BlobStore) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("cache directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cache root %s is not a directory", s.root)
	}

	probe, err := os.CreateTemp(s.root, ".healthcheck-*")
	if err != nil {
		return fmt.Errorf("cache directory not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

func (s *BlobStore) Close() error {
	return nil
}

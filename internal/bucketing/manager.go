package bucketing

import (
	"fmt"
	"hash"
	"sync"

	"github.com/spaolacci/murmur3"
)

// BucketingManager spreads cache blobs over a fixed number of shard directories
// so a single namespace directory does not grow without bound.
type BucketingManager struct {
	buckets    int
	hasherPool sync.Pool
}

func NewBucketingManager(buckets int) *BucketingManager {
	if buckets < 1 {
		buckets = 1
	}

	bm := &BucketingManager{buckets: buckets}

	// Create pool of hash functions to avoid allocation overhead
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// Bucket returns a stable bucket (0 to buckets-1) for key.
func (bm *BucketingManager) Bucket(key string) int {
	if bm.buckets == 1 {
		return 0
	}
	return int(bm.getHash(key) % uint64(bm.buckets))
}

// Shard returns the bucket formatted as a fixed-width directory name, or ""
// when sharding is disabled.
func (bm *BucketingManager) Shard(key string) string {
	if bm.buckets == 1 {
		return ""
	}
	width := len(fmt.Sprintf("%x", bm.buckets-1))
	return fmt.Sprintf("%0*x", width, bm.Bucket(key))
}

func (bm *BucketingManager) Buckets() int {
	return bm.buckets
}

func (bm *BucketingManager) getHash(key string) uint64 {
	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}

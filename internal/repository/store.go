package repository

import (
	"context"
	"errors"
	"fmt"

	"smsglue/internal/util"
)

// Namespace partitions blobs by purpose.
type Namespace string

const (
	NamespaceDevices    Namespace = "devices"
	NamespaceMessages   Namespace = "messages"
	NamespaceProvisions Namespace = "provisions"
	NamespaceKey        Namespace = "key"
)

// Namespaces lists every namespace a store must be able to hold.
var Namespaces = []Namespace{NamespaceDevices, NamespaceMessages, NamespaceProvisions, NamespaceKey}

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidKey   = errors.New("invalid blob key")
)

// BlobStore keeps one opaque blob per (namespace, id). Save replaces the
// whole blob; concurrent writers to the same pair race and the last one wins.
type BlobStore interface {
	Save(ctx context.Context, ns Namespace, id string, data []byte) error
	// Load returns ErrBlobNotFound when nothing was saved for the pair. An
	// empty blob is returned as a non-nil empty slice.
	Load(ctx context.Context, ns Namespace, id string) ([]byte, error)
	// Clear removes the blob; clearing a missing blob is not an error.
	Clear(ctx context.Context, ns Namespace, id string) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// ValidateKey rejects namespaces and ids that cannot be stored safely.
func ValidateKey(ns Namespace, id string) error {
	switch ns {
	case NamespaceDevices, NamespaceMessages, NamespaceProvisions, NamespaceKey:
	default:
		return fmt.Errorf("%w: unknown namespace %q", ErrInvalidKey, ns)
	}
	if !util.IsSafeKey(id) {
		return fmt.Errorf("%w: id %q", ErrInvalidKey, util.RedactKey(id))
	}
	return nil
}

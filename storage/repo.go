package storage

import (
	"context"

	mccerrors "github.com/jrsteele09/mcc-client/internal/errors"
)

// ErrNotFound is returned by a Repo when a key has never been set or was removed.
var ErrNotFound = mccerrors.ErrNotFound

// Repo is durable client-side key/value storage, the equivalent of a browser's
// localStorage. Values are opaque bytes; State layers JSON on top.
type Repo interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

package testutil

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrInjected is the default error returned by FailingStorage.
var ErrInjected = errors.New("injected storage failure")

// SnapshotStorage mirrors the method set of mirror.Storage so the helper can
// wrap any implementation without importing the mirror package.
type SnapshotStorage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// FailingStorage delegates to Inner but fails the Nth Save call (counting from
// 1) and every Save after it. FailOn <= 0 never fails.
type FailingStorage struct {
	Inner  SnapshotStorage
	FailOn int32
	Err    error

	saves atomic.Int32
}

func (f *FailingStorage) Load(ctx context.Context, key string) ([]byte, error) {
	return f.Inner.Load(ctx, key)
}

func (f *FailingStorage) Save(ctx context.Context, key string, payload []byte) error {
	n := f.saves.Add(1)
	if f.FailOn > 0 && n >= f.FailOn {
		if f.Err != nil {
			return f.Err
		}
		return ErrInjected
	}
	return f.Inner.Save(ctx, key, payload)
}

func (f *FailingStorage) Delete(ctx context.Context, key string) error {
	return f.Inner.Delete(ctx, key)
}

func (f *FailingStorage) Keys(ctx context.Context) ([]string, error) {
	return f.Inner.Keys(ctx)
}

// Saves reports how many Save calls were made.
func (f *FailingStorage) Saves() int {
	return int(f.saves.Load())
}

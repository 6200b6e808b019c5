package staterepofake

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/mcc-client/storage"
)

var _ storage.Repo = (*FakeStateRepo)(nil)

// ErrInjected is returned by a FakeStateRepo configured to fail.
var ErrInjected = errors.New("injected storage failure")

type FakeStateRepo struct {
	values     map[string][]byte
	failWrites bool
	lock       sync.RWMutex
}

func NewFakeStateRepo() *FakeStateRepo {
	return &FakeStateRepo{
		values: make(map[string][]byte),
	}
}

func (r *FakeStateRepo) Get(_ context.Context, key string) ([]byte, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	v, ok := r.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (r *FakeStateRepo) Set(_ context.Context, key string, value []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.failWrites {
		return ErrInjected
	}
	r.values[key] = append([]byte(nil), value...)
	return nil
}

func (r *FakeStateRepo) Delete(_ context.Context, key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.failWrites {
		return ErrInjected
	}
	delete(r.values, key)
	return nil
}

// FailWrites makes subsequent Set and Delete calls return ErrInjected.
func (r *FakeStateRepo) FailWrites(fail bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.failWrites = fail
}

// Raw returns the stored bytes for a fully namespaced key.
func (r *FakeStateRepo) Raw(key string) (string, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	v, ok := r.values[key]
	return string(v), ok
}

// Len returns the number of stored keys.
func (r *FakeStateRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.values)
}

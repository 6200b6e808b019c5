package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// DefaultNamespace prefixes every key written through State.
const DefaultNamespace = "mcc_"

// Well known state keys.
const (
	KeyToken       = "token"
	KeyUser        = "user"
	KeyCurrentPage = "current_page"
	KeyCookies     = "cookies"
)

// State stores values as stringified JSON under namespaced keys.
type State struct {
	repo      Repo
	namespace string
}

// NewState wraps repo using the DefaultNamespace.
func NewState(repo Repo) *State {
	return NewStateWithNamespace(repo, DefaultNamespace)
}

// NewStateWithNamespace wraps repo with a custom key namespace.
func NewStateWithNamespace(repo Repo, namespace string) *State {
	return &State{repo: repo, namespace: namespace}
}

// GetJSON decodes the value stored under key into v. It reports false when the
// key is absent or its value can no longer be decoded; a corrupt value is
// treated the same as a missing one.
func (s *State) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.repo.Get(ctx, s.namespace+key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("Discarding unreadable state value")
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func (s *State) SetJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.repo.Set(ctx, s.namespace+key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *State) Remove(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, s.namespace+key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

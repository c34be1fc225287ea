package state

import (
	"context"
	"errors"
	"time"
)

// TokenKey is the fixed key under which the bearer token is persisted.
const TokenKey = "oshocks_token"

// ErrNoToken is returned when no token has been saved.
var ErrNoToken = errors.New("state: no token saved")

type savedToken struct {
	Token   string    `msgpack:"token"`
	SavedAt time.Time `msgpack:"saved_at"`
}

// TokenStore reads and writes the bearer token.
type TokenStore struct {
	store      Store
	serializer Serializer
	now        func() time.Time
}

// NewTokenStore creates a token store over store.
func NewTokenStore(store Store) *TokenStore {
	s := NewMsgPackSerializer()
	s.UseCompression = false
	return &TokenStore{store: store, serializer: s, now: time.Now}
}

// Token returns the saved token, or "" with ErrNoToken.
func (t *TokenStore) Token(ctx context.Context) (string, error) {
	tok, _, err := t.Load(ctx)
	return tok, err
}

// Load returns the saved token and when it was saved.
func (t *TokenStore) Load(ctx context.Context) (string, time.Time, error) {
	data, err := t.store.Get(ctx, TokenKey)
	if errors.Is(err, ErrKeyNotFound) {
		return "", time.Time{}, ErrNoToken
	}
	if err != nil {
		return "", time.Time{}, err
	}

	var saved savedToken
	if err := t.serializer.Unmarshal(data, &saved); err != nil {
		return "", time.Time{}, err
	}
	if saved.Token == "" {
		return "", time.Time{}, ErrNoToken
	}
	return saved.Token, saved.SavedAt, nil
}

// SetToken saves token. An empty token clears the store.
func (t *TokenStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return t.Clear(ctx)
	}
	data, err := t.serializer.Marshal(savedToken{Token: token, SavedAt: t.now().UTC()})
	if err != nil {
		return err
	}
	return t.store.Set(ctx, TokenKey, data, 0)
}

// Clear removes the saved token.
func (t *TokenStore) Clear(ctx context.Context) error {
	return t.store.Delete(ctx, TokenKey)
}

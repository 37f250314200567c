package sessionstore

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"clubworx-backend/internal/components/assert"
	"clubworx-backend/internal/scrapers/clubworx"

	"github.com/valkey-io/valkey-go"
)

const keyPrefix = "clubworx:session:"

// NewValkeyClient connects to the valkey server at uri, credentials are taken
// from the userinfo part and the rediss scheme enables TLS.
func NewValkeyClient(uri string) (valkey.Client, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}

	username := ""
	password := ""
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}

	options := valkey.ClientOption{
		InitAddress: []string{u.Host},
		Username:    username,
		Password:    password,
	}
	if u.Scheme == "rediss" || u.Scheme == "valkeys" {
		options.TLSConfig = &tls.Config{ServerName: u.Hostname()}
	}

	return valkey.NewClient(options)
}

// ValkeyStore is a Store backed by valkey string keys. A ttl under a second
// keeps sessions until they are deleted.
type ValkeyStore struct {
	client valkey.Client
	ttl    time.Duration
}

func NewValkeyStore(client valkey.Client, ttl time.Duration) ValkeyStore {
	assert.NotNil(client)
	return ValkeyStore{client: client, ttl: ttl}
}

func valkeyKey(key string) string {
	return keyPrefix + key
}

func (s ValkeyStore) Get(ctx context.Context, key string) (clubworx.SessionData, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(valkeyKey(key)).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return clubworx.SessionData{}, ErrNotFound
	}
	if err != nil {
		return clubworx.SessionData{}, fmt.Errorf("get session: %w", err)
	}
	return clubworx.ParseSessionData([]byte(data))
}

func (s ValkeyStore) Put(ctx context.Context, key string, data clubworx.SessionData) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}

	set := s.client.B().Set().Key(valkeyKey(key)).Value(string(encoded))
	var cmd valkey.Completed
	if seconds := int64(s.ttl / time.Second); seconds > 0 {
		cmd = set.ExSeconds(seconds).Build()
	} else {
		cmd = set.Build()
	}

	err = s.client.Do(ctx, cmd).Error()
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s ValkeyStore) Delete(ctx context.Context, key string) error {
	err := s.client.Do(ctx, s.client.B().Del().Key(valkeyKey(key)).Build()).Error()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

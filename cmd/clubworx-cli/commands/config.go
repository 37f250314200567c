package commands

import (
	"fmt"
	"time"

	"clubworx-backend/internal/components/chrono"
	"clubworx-backend/internal/sessionstore"
)

type StoreConfig struct {
	// Driver is one of "sqlite" (default), "libsql" or "valkey".
	Driver     string `json:"driver"`
	File       string `json:"file"`
	Url        string `json:"url"`
	AuthToken  string `json:"auth_token"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type Config struct {
	BaseUrl          string      `json:"base_url"`
	Email            string      `json:"email"`
	Password         string      `json:"password"`
	BypassCloudflare bool        `json:"bypass_cloudflare"`
	Store            StoreConfig `json:"store"`
}

const defaultStoreFile = ".dev/clubworx/sessions.db"

// openStore returns the configured store and a function that releases it.
func (c StoreConfig) openStore() (sessionstore.Store, func(), error) {
	switch c.Driver {
	case "", "sqlite", "libsql":
		config := sessionstore.Libsql{
			File:      c.File,
			Url:       c.Url,
			AuthToken: c.AuthToken,
		}
		if config.File == "" && config.Url == "" {
			config.File = defaultStoreFile
		}
		if c.Driver == "libsql" && config.Url == "" {
			return nil, nil, fmt.Errorf("store: libsql driver requires url")
		}

		db, err := config.OpenDB()
		if err != nil {
			return nil, nil, err
		}
		clock, err := chrono.NewStandardImpl("")
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return sessionstore.NewSQLStore(db, clock), func() { db.Close() }, nil
	case "valkey":
		client, err := sessionstore.NewValkeyClient(c.Url)
		if err != nil {
			return nil, nil, err
		}
		ttl := time.Duration(c.TTLSeconds) * time.Second
		return sessionstore.NewValkeyStore(client, ttl), client.Close, nil
	}
	return nil, nil, fmt.Errorf("store: unknown driver %q", c.Driver)
}

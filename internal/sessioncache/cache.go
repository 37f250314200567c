package sessioncache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clubworx-backend/internal/components/assert"
	"clubworx-backend/internal/components/telemetry"
	"clubworx-backend/internal/scrapers/clubworx"
	"clubworx-backend/internal/sessionstore"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	report_cache_restore = "cache.restore"
	report_cache_persist = "cache.persist"
	report_cache_forget  = "cache.forget"
	report_cache_do      = "cache.do"
)

// Credentials looks up the password of an account.
//
// note: fault injection point
type Credentials interface {
	Password(ctx context.Context, email string) (string, error)
}

// StaticCredentials is a fixed email -> password table.
type StaticCredentials map[string]string

var ErrUnknownAccount = errors.New("sessioncache: no credentials for account")

func (c StaticCredentials) Password(ctx context.Context, email string) (string, error) {
	password, ok := c[email]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAccount, email)
	}
	return password, nil
}

type Options struct {
	Size int
	TTL  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = 2048
	}
	if o.TTL <= 0 {
		o.TTL = time.Minute * 15
	}
	return o
}

// Cache hands out clubworx sessions per account, it checks memory first,
// then the store, then logs in.
type Cache struct {
	cache       *expirable.LRU[string, *clubworx.Session]
	client      *clubworx.Client
	store       sessionstore.Store
	credentials Credentials
	tel         telemetry.API
}

func New(
	client *clubworx.Client,
	store sessionstore.Store,
	credentials Credentials,
	tel telemetry.API,
	opts Options,
) Cache {
	assert.NotNil(client)
	assert.NotNil(store)
	assert.NotNil(credentials)
	assert.NotNil(tel)

	opts = opts.withDefaults()
	return Cache{
		cache:       expirable.NewLRU[string, *clubworx.Session](opts.Size, nil, opts.TTL),
		client:      client,
		store:       store,
		credentials: credentials,
		tel:         telemetry.NewScopedAPI("sessioncache", tel),
	}
}

func (c Cache) Get(ctx context.Context, email string) (*clubworx.Session, error) {
	cached, hit := c.cache.Get(email)
	if hit {
		return cached, nil
	}

	data, err := c.store.Get(ctx, email)
	switch {
	case err == nil:
		session, err := c.client.Restore(data)
		if err == nil {
			c.cache.Add(email, session)
			return session, nil
		}
		c.tel.ReportWarning(report_cache_restore, err)
	case errors.Is(err, sessionstore.ErrNotFound):
	case errors.Is(err, clubworx.ErrInvalidSessionData):
		c.tel.ReportWarning(report_cache_restore, err)
	default:
		return nil, err
	}

	return c.login(ctx, email)
}

// Login always signs in again and replaces whatever was cached or stored.
func (c Cache) Login(ctx context.Context, email string) (*clubworx.Session, error) {
	return c.login(ctx, email)
}

func (c Cache) login(ctx context.Context, email string) (*clubworx.Session, error) {
	password, err := c.credentials.Password(ctx, email)
	if err != nil {
		return nil, err
	}
	session, err := c.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	err = c.store.Put(ctx, email, session.ToJSON())
	if err != nil {
		c.tel.ReportBroken(report_cache_persist, err)
	}
	c.cache.Add(email, session)
	return session, nil
}

// Forget drops the session of an account from memory and from the store.
func (c Cache) Forget(ctx context.Context, email string) error {
	c.cache.Remove(email)
	return c.store.Delete(ctx, email)
}

// Do runs fn with the session of email. If fn fails with
// clubworx.ErrSessionExpired the session is forgotten, a new one is created
// by logging in and fn runs one more time.
func (c Cache) Do(ctx context.Context, email string, fn func(*clubworx.Session) error) error {
	session, err := c.Get(ctx, email)
	if err != nil {
		return err
	}

	err = fn(session)
	if !errors.Is(err, clubworx.ErrSessionExpired) {
		return err
	}

	c.tel.ReportDebug(report_cache_do, "session expired, logging in again")
	err = c.Forget(ctx, email)
	if err != nil {
		c.tel.ReportBroken(report_cache_forget, err)
	}

	session, err = c.login(ctx, email)
	if err != nil {
		return err
	}
	return fn(session)
}

package sessioncache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"clubworx-backend/internal/components/chrono"
	"clubworx-backend/internal/components/telemetry"
	"clubworx-backend/internal/scrapers/clubworx"
	"clubworx-backend/internal/sessionstore"

	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "owner@example.com"
	testPassword = "hunter2"
)

// fakeClubworx accepts exactly one session cookie value at a time, every
// login rotates it.
type fakeClubworx struct {
	server *httptest.Server

	mutex      sync.Mutex
	logins     int
	valid      string
	rejectAll  bool
	reportHits int
}

func newFakeClubworx(t testing.TB) *fakeClubworx {
	f := &fakeClubworx{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/sign_in", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<form><input type="hidden" name="authenticity_token" value="token" /></form>`))
	})
	mux.HandleFunc("POST /users/sign_in", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("user[password]") != testPassword {
			w.WriteHeader(http.StatusOK)
			return
		}
		f.mutex.Lock()
		f.logins++
		f.valid = fmt.Sprintf("s%d", f.logins)
		value := f.valid
		f.mutex.Unlock()

		w.Header().Add("Set-Cookie", "_clubworx_session="+value+"; path=/")
		w.Header().Set("Location", "/dashboard")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<script id="gym-data" type="application/json">{"id": 42}</script>`))
	})
	mux.HandleFunc("GET /gyms/42/reports", func(w http.ResponseWriter, r *http.Request) {
		f.mutex.Lock()
		f.reportHits++
		cookie, err := r.Cookie("_clubworx_session")
		ok := err == nil && cookie.Value == f.valid && !f.rejectAll
		f.mutex.Unlock()

		if !ok {
			w.Header().Set("Location", "/users/sign_in")
			w.WriteHeader(http.StatusFound)
			return
		}
		w.Write([]byte(`{"collection": [{"id": 1, "name": "Attendance"}]}`))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeClubworx) expireSessions() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.valid = ""
}

func (f *fakeClubworx) loginCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.logins
}

type fixture struct {
	fake  *fakeClubworx
	tel   *telemetry.Recorder
	store sessionstore.SQLStore
	cache Cache
}

func setup(t testing.TB) fixture {
	fake := newFakeClubworx(t)
	tel := &telemetry.Recorder{}

	client, err := clubworx.NewClient(clubworx.ClientOptions{BaseUrl: fake.server.URL}, tel)
	if err != nil {
		t.Fatal(err)
	}

	db, err := sessionstore.Libsql{File: ":memory:"}.OpenDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	store := sessionstore.NewSQLStore(db, chrono.FixedImpl{Time: time.Unix(1700000000, 0)})

	cache := New(client, store, StaticCredentials{testEmail: testPassword}, tel, Options{})
	return fixture{fake: fake, tel: tel, store: store, cache: cache}
}

func listReports(ctx context.Context, calls *int) func(*clubworx.Session) error {
	return func(session *clubworx.Session) error {
		*calls++
		_, err := session.AllReports(ctx, clubworx.PageOptions{})
		return err
	}
}

func TestGet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	session, err := f.cache.Get(ctx, testEmail)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, clubworx.ID("42"), session.GymID())
	require.Equal(t, 1, f.fake.loginCount())

	again, err := f.cache.Get(ctx, testEmail)
	if err != nil {
		t.Fatal(err)
	}
	require.Same(t, session, again)
	require.Equal(t, 1, f.fake.loginCount())

	stored, err := f.store.Get(ctx, testEmail)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, session.ToJSON(), stored)
}

func TestGetRestoresFromStore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.cache.Get(ctx, testEmail)
	if err != nil {
		t.Fatal(err)
	}

	// a fresh cache has nothing in memory but shares the store
	fresh := New(f.cache.client, f.store, StaticCredentials{}, f.tel, Options{})
	session, err := fresh.Get(ctx, testEmail)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, f.fake.loginCount())

	_, err = session.AllReports(ctx, clubworx.PageOptions{})
	require.NoError(t, err)
}

func TestGetUnknownAccount(t *testing.T) {
	f := setup(t)

	_, err := f.cache.Get(context.Background(), "stranger@example.com")
	require.ErrorIs(t, err, ErrUnknownAccount)
	require.Equal(t, 0, f.fake.loginCount())
}

func TestGetWrongPassword(t *testing.T) {
	f := setup(t)
	f.cache.credentials = StaticCredentials{testEmail: "wrong"}

	_, err := f.cache.Get(context.Background(), testEmail)
	require.ErrorIs(t, err, clubworx.ErrLoginFailed)

	_, err = f.store.Get(context.Background(), testEmail)
	require.ErrorIs(t, err, sessionstore.ErrNotFound)
}

func TestDo(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	calls := 0
	err := f.cache.Do(ctx, testEmail, listReports(ctx, &calls))
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, f.fake.loginCount())

	f.fake.expireSessions()

	calls = 0
	err = f.cache.Do(ctx, testEmail, listReports(ctx, &calls))
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, 2, f.fake.loginCount())

	// the replacement session was persisted
	stored, err := f.store.Get(ctx, testEmail)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []string{"_clubworx_session=s2; path=/"}, stored.Cookies)
	require.Empty(t, f.tel.Broken())

	var relogins []telemetry.Report
	for _, report := range f.tel.Reports() {
		if report.Id == "sessioncache: cache.do" {
			relogins = append(relogins, report)
		}
	}
	require.Equal(t, []telemetry.Report{{
		Kind:   "debug",
		Id:     "sessioncache: cache.do",
		Params: []any{"session expired, logging in again"},
	}}, relogins)
}

func TestDoRetriesOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.cache.Get(ctx, testEmail)
	if err != nil {
		t.Fatal(err)
	}

	f.fake.mutex.Lock()
	f.fake.rejectAll = true
	f.fake.mutex.Unlock()

	calls := 0
	err = f.cache.Do(ctx, testEmail, listReports(ctx, &calls))
	require.ErrorIs(t, err, clubworx.ErrSessionExpired)
	require.Equal(t, 2, calls)
	require.Equal(t, 2, f.fake.loginCount())
}

func TestDoOtherErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	failure := errors.New("boom")
	calls := 0
	err := f.cache.Do(ctx, testEmail, func(*clubworx.Session) error {
		calls++
		return failure
	})
	require.ErrorIs(t, err, failure)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, f.fake.loginCount())
}

func TestGetCorruptStoredSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	err := f.store.Put(ctx, testEmail, clubworx.SessionData{Cookies: []string{"a=b"}})
	if err != nil {
		t.Fatal(err)
	}

	session, err := f.cache.Get(ctx, testEmail)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, clubworx.ID("42"), session.GymID())
	require.Equal(t, 1, f.fake.loginCount())

	var warned bool
	for _, report := range f.tel.Reports() {
		if report.Kind == "warning" && report.Id == "sessioncache: cache.restore" {
			warned = true
		}
	}
	require.True(t, warned)
}

func TestForget(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.cache.Get(ctx, testEmail)
	if err != nil {
		t.Fatal(err)
	}

	err = f.cache.Forget(ctx, testEmail)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.store.Get(ctx, testEmail)
	require.ErrorIs(t, err, sessionstore.ErrNotFound)

	_, err = f.cache.Get(ctx, testEmail)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, f.fake.loginCount())
}

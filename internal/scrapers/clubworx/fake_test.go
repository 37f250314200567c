package clubworx

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"clubworx-backend/internal/components/telemetry"
)

const (
	testEmail    = "owner@example.com"
	testPassword = "correct horse"
	testToken    = "tok+en/abc=="
)

func signInPage(token string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><body>
<form class="new_user" action="/users/sign_in" method="post">
  <input type="hidden" name="authenticity_token" value="%s" autocomplete="off" />
  <input type="email" name="user[email]" />
  <input type="password" name="user[password]" />
</form>
</body></html>`, token)
}

func dashboardPage(gymData string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head>
<script id="gym-data" type="application/json">%s</script>
</head><body><div id="app"></div></body></html>`, gymData)
}

type fakeOptions struct {
	// redirects is the number of hops after the credentials POST that answer
	// with another redirect before the dashboard is served.
	redirects int
	// postStatus overrides the credentials POST status (default 302).
	postStatus int
	// noPostCookies makes the credentials POST answer without Set-Cookie.
	noPostCookies bool
	signInPage    string
	dashboard     string
}

type fakeClubworx struct {
	t       testing.TB
	opts    fakeOptions
	server  *httptest.Server
	mux     *http.ServeMux
	tel     *telemetry.Recorder
	client  *Client
	mutex   sync.Mutex
	cookies map[string]string
	form    map[string]string
}

func newFakeClubworx(t testing.TB, opts fakeOptions) *fakeClubworx {
	if opts.postStatus == 0 {
		opts.postStatus = http.StatusFound
	}
	if opts.signInPage == "" {
		opts.signInPage = signInPage(testToken)
	}
	if opts.dashboard == "" {
		opts.dashboard = dashboardPage(`{"id": 42, "name": "Fightworx"}`)
	}

	f := &fakeClubworx{
		t:       t,
		opts:    opts,
		mux:     http.NewServeMux(),
		tel:     &telemetry.Recorder{},
		cookies: map[string]string{},
		form:    map[string]string{},
	}
	f.mux.HandleFunc("GET /users/sign_in", f.getSignIn)
	f.mux.HandleFunc("POST /users/sign_in", f.postSignIn)
	f.mux.HandleFunc("GET /hop/{n}", f.hop)
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)

	client, err := NewClient(ClientOptions{BaseUrl: f.server.URL}, f.tel)
	if err != nil {
		t.Fatal(err)
	}
	f.client = client
	return f
}

func (f *fakeClubworx) recordCookies(r *http.Request) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.cookies[r.Method+" "+r.URL.Path] = r.Header.Get("Cookie")
}

// cookieSeen returns the Cookie header the fake received for "METHOD /path".
func (f *fakeClubworx) cookieSeen(key string) string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.cookies[key]
}

func (f *fakeClubworx) getSignIn(w http.ResponseWriter, r *http.Request) {
	f.recordCookies(r)
	w.Header().Add("Set-Cookie", "_clubworx_session=anonymous; path=/; HttpOnly")
	w.Write([]byte(f.opts.signInPage))
}

func (f *fakeClubworx) postSignIn(w http.ResponseWriter, r *http.Request) {
	f.recordCookies(r)
	err := r.ParseForm()
	if err != nil {
		f.t.Error(err)
	}
	f.mutex.Lock()
	for key := range r.PostForm {
		f.form[key] = r.PostForm.Get(key)
	}
	f.mutex.Unlock()

	if r.PostForm.Get("user[password]") != testPassword {
		w.Header().Add("Set-Cookie", "_clubworx_session=anonymous2; path=/; HttpOnly")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(f.opts.signInPage))
		return
	}

	if !f.opts.noPostCookies {
		w.Header().Add("Set-Cookie", "_clubworx_session=authenticated; path=/; HttpOnly")
		w.Header().Add("Set-Cookie", "remember_user_token=remember; path=/; expires=Fri, 01 Jan 2100 00:00:00 GMT")
	}
	w.Header().Set("Location", "/hop/1")
	w.WriteHeader(f.opts.postStatus)
}

func (f *fakeClubworx) hop(w http.ResponseWriter, r *http.Request) {
	f.recordCookies(r)
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		f.t.Error(err)
	}

	if n > f.opts.redirects {
		w.Write([]byte(f.opts.dashboard))
		return
	}

	w.Header().Add("Set-Cookie", fmt.Sprintf("hop%d=visited; path=/", n))
	next := fmt.Sprintf("/hop/%d", n+1)
	status := http.StatusFound
	// alternate between absolute and relative locations and between 301/302
	if n%2 == 0 {
		next = f.server.URL + next
		status = http.StatusMovedPermanently
	}
	w.Header().Set("Location", next)
	w.WriteHeader(status)
}

// session returns a session against the fake without going through login.
func (f *fakeClubworx) session() *Session {
	session, err := f.client.Restore(SessionData{
		Cookies: []string{
			"_clubworx_session=authenticated; path=/; HttpOnly",
			"remember_user_token=remember; path=/",
		},
		GymID: "42",
	})
	if err != nil {
		f.t.Fatal(err)
	}
	return session
}

func (f *fakeClubworx) handleJSON(pattern string, body string) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		f.recordCookies(r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
}

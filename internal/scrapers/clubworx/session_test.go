package clubworx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	fake := newFakeClubworx(t, fakeOptions{redirects: 1})

	session, err := fake.client.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatal(err)
	}

	serialized, err := json.Marshal(session)
	if err != nil {
		t.Fatal(err)
	}

	var shape map[string]any
	err = json.Unmarshal(serialized, &shape)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, shape, 2)
	require.Contains(t, shape, "cookies")
	require.Contains(t, shape, "gymId")

	restored, err := fake.client.FromJSON(serialized)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, session.ToJSON(), restored.ToJSON())
	require.Equal(t, session.header, restored.header)
}

func TestSessionKeepsGymIDKind(t *testing.T) {
	fake := newFakeClubworx(t, fakeOptions{})

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "number",
			input:    `{"cookies": ["a=b"], "gymId": 42}`,
			expected: `{"cookies": ["a=b"], "gymId": 42}`,
		},
		{
			name:     "string",
			input:    `{"cookies": ["a=b"], "gymId": "42"}`,
			expected: `{"cookies": ["a=b"], "gymId": "42"}`,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			session, err := fake.client.FromJSON([]byte(test.input))
			if err != nil {
				t.Fatal(err)
			}
			require.Equal(t, ID("42"), session.GymID())

			exported, err := json.Marshal(session)
			if err != nil {
				t.Fatal(err)
			}
			require.JSONEq(t, test.expected, string(exported))

			data, err := ParseSessionData([]byte(test.input))
			if err != nil {
				t.Fatal(err)
			}
			exported, err = json.Marshal(data)
			if err != nil {
				t.Fatal(err)
			}
			require.JSONEq(t, test.expected, string(exported))
		})
	}

	// the dashboard serves a numeric id, so a fresh login exports a number
	session, err := fake.client.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatal(err)
	}
	exported, err := json.Marshal(session)
	if err != nil {
		t.Fatal(err)
	}
	var shape map[string]any
	err = json.Unmarshal(exported, &shape)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, float64(42), shape["gymId"])
}

func TestFromJSON(t *testing.T) {
	fake := newFakeClubworx(t, fakeOptions{})

	session, err := fake.client.FromJSON([]byte(`{"cookies": ["a=1; path=/"], "gymId": 77}`))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, ID("77"), session.GymID())
	require.Equal(t, []string{"a=1; path=/"}, session.Cookies())

	session, err = fake.client.FromJSON([]byte(`{"cookies": [], "gymId": "77"}`))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []string{}, session.Cookies())

	invalid := []string{
		`{"gymId": 77}`,
		`{"cookies": null, "gymId": 77}`,
		`{"cookies": ["a=1"]}`,
		`{"cookies": ["a=1"], "gymId": null}`,
		`{"cookies": ["a=1"], "gymId": ""}`,
		`{"cookies": "a=1", "gymId": 77}`,
		`not json`,
		``,
	}
	for _, data := range invalid {
		_, err := fake.client.FromJSON([]byte(data))
		require.ErrorIs(t, err, ErrInvalidSessionData, data)
	}

	_, err = fake.client.Restore(SessionData{GymID: "1"})
	require.ErrorIs(t, err, ErrInvalidSessionData)
	_, err = fake.client.Restore(SessionData{Cookies: []string{}})
	require.ErrorIs(t, err, ErrInvalidSessionData)
}

func TestSessionIsolatedFromCallerSlices(t *testing.T) {
	fake := newFakeClubworx(t, fakeOptions{})
	cookies := []string{"a=1"}
	session, err := fake.client.Restore(SessionData{Cookies: cookies, GymID: "1"})
	if err != nil {
		t.Fatal(err)
	}
	cookies[0] = "a=2"
	session.Cookies()[0] = "a=3"
	require.Equal(t, []string{"a=1"}, session.Cookies())
}

func TestAuthenticatedRequestHeaders(t *testing.T) {
	fake := newFakeClubworx(t, fakeOptions{})

	var received http.Header
	fake.mux.HandleFunc("POST /gyms/42/echo", func(w http.ResponseWriter, r *http.Request) {
		received = r.Header.Clone()
		w.Write([]byte(`{}`))
	})

	session := fake.session()
	res, err := session.authenticatedRequest(
		context.Background(),
		http.MethodPost,
		session.gymEndpoint("/echo"),
		map[string]string{
			"X-Requested-With": "XMLHttpRequest",
			"cookie":           "evil=1",
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, http.StatusOK, res.StatusCode())
	require.Equal(t, "application/json", received.Get("Accept"))
	require.Equal(t, "XMLHttpRequest", received.Get("X-Requested-With"))
	require.Equal(t, "_clubworx_session=authenticated; remember_user_token=remember", received.Get("Cookie"))
}

func TestSessionExpired(t *testing.T) {
	fake := newFakeClubworx(t, fakeOptions{})

	expired := func(status int, location string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if location != "" {
				w.Header().Set("Location", location)
			}
			w.WriteHeader(status)
			// never valid json, the body must not be parsed
			w.Write([]byte("<html>You need to sign in</html>"))
		}
	}
	fake.mux.HandleFunc("GET /gyms/42/reports", expired(http.StatusUnauthorized, ""))
	fake.mux.HandleFunc("GET /gyms/42/reports/{id}", expired(http.StatusFound, "/users/sign_in"))
	fake.mux.HandleFunc("GET /gyms/42/members", expired(http.StatusFound, fake.server.URL+"/users/sign_in?redirect=members"))
	fake.mux.HandleFunc("GET /gyms/42/contacts/{id}", expired(http.StatusUnauthorized, ""))
	fake.mux.HandleFunc("GET /gyms/42/dashboard/financials", expired(http.StatusFound, "/users/sign_in"))

	ctx := context.Background()
	session := fake.session()

	_, err := session.AllReports(ctx, PageOptions{})
	require.ErrorIs(t, err, ErrSessionExpired)
	_, err = session.ReportByID(ctx, "3", PageOptions{})
	require.ErrorIs(t, err, ErrSessionExpired)
	_, err = session.Members(ctx, MemberOptions{})
	require.ErrorIs(t, err, ErrSessionExpired)
	_, err = session.MemberByID(ctx, "9")
	require.ErrorIs(t, err, ErrSessionExpired)
	_, err = session.Financials(ctx)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestRedirectElsewhereIsNotExpiry(t *testing.T) {
	fake := newFakeClubworx(t, fakeOptions{})
	fake.mux.HandleFunc("GET /gyms/42/dashboard/financials", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/gyms/42/dashboard")
		w.WriteHeader(http.StatusFound)
	})

	_, err := fake.session().Financials(context.Background())
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrSessionExpired))
}

func TestStatusError(t *testing.T) {
	fake := newFakeClubworx(t, fakeOptions{})
	fake.mux.HandleFunc("GET /gyms/42/dashboard/financials", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := fake.session().Financials(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	require.Equal(t, "/gyms/42/dashboard/financials", statusErr.Endpoint)
	require.Equal(t, []string{"clubworx: session.request"}, fake.tel.Broken())
}

func TestMalformedJSON(t *testing.T) {
	fake := newFakeClubworx(t, fakeOptions{})
	fake.handleJSON("GET /gyms/42/reports", `{"collection": [`)

	_, err := fake.session().AllReports(context.Background(), PageOptions{})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, []string{"clubworx: session.decode"}, fake.tel.Broken())
}

package clubworx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	report_session_request = "session.request"
	report_session_decode  = "session.decode"
)

// SessionData is the serialized form of a Session, it is the only thing
// that needs to be stored to skip logging in again.
type SessionData struct {
	Cookies []string `json:"cookies"`
	GymID   ID       `json:"gymId"`

	// numericGymID is set when gymId arrived as a JSON number, it is written
	// back as a number.
	numericGymID bool
}

func (d SessionData) MarshalJSON() ([]byte, error) {
	var gymID any = d.GymID.String()
	if d.numericGymID {
		gymID = json.Number(d.GymID)
	}
	return json.Marshal(struct {
		Cookies []string `json:"cookies"`
		GymID   any      `json:"gymId"`
	}{
		Cookies: d.Cookies,
		GymID:   gymID,
	})
}

// ParseSessionData decodes stored session JSON, it fails with
// ErrInvalidSessionData if the JSON is malformed or cookies/gymId is missing.
func ParseSessionData(data []byte) (SessionData, error) {
	var parsed struct {
		Cookies *[]string       `json:"cookies"`
		GymID   json.RawMessage `json:"gymId"`
	}
	err := json.Unmarshal(data, &parsed)
	if err != nil {
		return SessionData{}, fmt.Errorf("%w: %w", ErrInvalidSessionData, err)
	}
	if parsed.Cookies == nil || len(parsed.GymID) == 0 {
		return SessionData{}, ErrInvalidSessionData
	}

	var gymID ID
	err = json.Unmarshal(parsed.GymID, &gymID)
	if err != nil {
		return SessionData{}, fmt.Errorf("%w: %w", ErrInvalidSessionData, err)
	}
	if gymID == "" {
		return SessionData{}, ErrInvalidSessionData
	}

	cookies := *parsed.Cookies
	if cookies == nil {
		cookies = []string{}
	}
	return SessionData{
		Cookies:      cookies,
		GymID:        gymID,
		numericGymID: isNumberLiteral(parsed.GymID),
	}, nil
}

// Session is an authenticated clubworx session. It is read-only once
// created, so a single Session can be shared between goroutines.
type Session struct {
	cookies      cookieJar
	gymID        ID
	numericGymID bool
	header       string

	client *Client
}

func newSession(client *Client, cookies cookieJar, gymID ID, numericGymID bool) *Session {
	return &Session{
		cookies:      cookies,
		gymID:        gymID,
		numericGymID: numericGymID,
		header:       cookieHeader(cookies),
		client:       client,
	}
}

func (s *Session) GymID() ID {
	return s.gymID
}

// Cookies returns a copy of the raw Set-Cookie values collected at login.
func (s *Session) Cookies() []string {
	out := make([]string, len(s.cookies))
	copy(out, s.cookies)
	return out
}

func (s *Session) ToJSON() SessionData {
	return SessionData{
		Cookies:      s.Cookies(),
		GymID:        s.gymID,
		numericGymID: s.numericGymID,
	}
}

func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}

func (s *Session) gymEndpoint(format string, args ...any) string {
	return fmt.Sprintf("/gyms/%s", url.PathEscape(s.gymID.String())) + fmt.Sprintf(format, args...)
}

func isSessionExpired(res *resty.Response) bool {
	switch res.StatusCode() {
	case http.StatusUnauthorized:
		return true
	case http.StatusFound:
		return strings.Contains(res.Header().Get("Location"), signInPath)
	}
	return false
}

// authenticatedRequest sends a request carrying the session cookies, caller
// headers are applied before the Cookie header so they cannot replace it.
func (s *Session) authenticatedRequest(
	ctx context.Context,
	method,
	endpoint string,
	headers map[string]string,
) (*resty.Response, error) {
	req := s.client.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == "Cookie" {
			continue
		}
		req.SetHeader(k, v)
	}
	if s.header != "" {
		req.SetHeader("Cookie", s.header)
	}

	res, err := req.Execute(method, endpoint)
	if err != nil {
		s.client.tel.ReportBroken(
			report_session_request,
			fmt.Errorf("fetch: %w", err),
			method,
			endpoint,
		)
		return nil, err
	}

	if isSessionExpired(res) {
		s.client.tel.ReportDebug(report_session_request, "session expired", res.StatusCode(), endpoint)
		return nil, ErrSessionExpired
	}
	if res.StatusCode() >= http.StatusBadRequest {
		err := &StatusError{StatusCode: res.StatusCode(), Endpoint: endpoint}
		s.client.tel.ReportBroken(report_session_request, err)
		return nil, err
	}

	return res, nil
}

func decodeJSON(body []byte, out any) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	return decoder.Decode(out)
}

func (s *Session) getJSON(ctx context.Context, reportId, endpoint string, out any) error {
	res, err := s.authenticatedRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	err = decodeJSON(res.Body(), out)
	if err != nil {
		s.client.tel.ReportBroken(
			report_session_decode,
			fmt.Errorf("%s: %w", reportId, err),
			endpoint,
		)
		return fmt.Errorf("clubworx: decode %s: %w", endpoint, err)
	}
	return nil
}

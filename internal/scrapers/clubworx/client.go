// client.go contains the login handshake, everything that depends on the
// layout of the clubworx sign-in and dashboard pages lives here and in extract.go.

package clubworx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"clubworx-backend/internal/components/assert"
	"clubworx-backend/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const (
	report_client_login   = "client.login"
	report_client_restore = "client.restore"
)

const (
	DefaultBaseUrl   = "https://app.clubworx.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

	signInPath   = "/users/sign_in"
	maxRedirects = 5
)

type ClientOptions struct {
	// BaseUrl is the origin of the service, defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout applies to every single request, defaults to 30 seconds.
	Timeout   time.Duration
	UserAgent string
	// BypassCloudflare wraps the transport so requests look like they come
	// from a browser.
	BypassCloudflare bool
}

// Client performs the login handshake and owns the http client shared by
// every Session it creates.
type Client struct {
	BaseUrl *url.URL

	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("clubworx", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("clubworx: base url must be absolute, got %q", opts.BaseUrl)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("user-agent", opts.UserAgent)
	// the session owns its cookies, a jar on the http client would leak them
	// between sessions sharing this client
	httpClient.SetCookieJar(nil)
	// redirects are followed by hand so cookies can be collected at every hop
	// and so that a redirect to the sign-in page is visible to sessions
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	if opts.BypassCloudflare {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		BaseUrl: baseUrl,
		http:    httpClient,
		tel:     tel,
	}, nil
}

// Http exposes the underlying resty client so callers can attach extra
// instrumentation.
func (c *Client) Http() *resty.Client {
	return c.http
}

func (c *Client) resolve(location string) (string, error) {
	target, err := c.BaseUrl.Parse(location)
	if err != nil {
		return "", err
	}
	return target.String(), nil
}

func isRedirect(status int) bool {
	return status == http.StatusMovedPermanently || status == http.StatusFound
}

// Login signs in with email and password and returns the resulting Session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	loginError := func(err error) error {
		return fmt.Errorf("clubworx: login: %w", err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(signInPath)
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("sign-in page request: %w", err),
		)
		return nil, loginError(err)
	}

	token, err := extractAuthenticityToken(res.Body())
	if err != nil {
		c.tel.ReportBroken(report_client_login, err, res.StatusCode())
		return nil, err
	}

	var jar cookieJar
	jar.add(res.Header().Values("Set-Cookie"))

	req := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"authenticity_token": token,
			"user[email]":        email,
			"user[password]":     password,
			"user[remember_me]":  "1",
			"commit":             "Log in",
		})
	if header := cookieHeader(jar); header != "" {
		req.SetHeader("Cookie", header)
	}
	res, err = req.Post(signInPath)
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("credentials request: %w", err),
		)
		return nil, loginError(err)
	}

	setCookies := res.Header().Values("Set-Cookie")
	if res.StatusCode() != http.StatusFound || len(setCookies) == 0 {
		c.tel.ReportWarning(
			report_client_login,
			"credentials rejected",
			res.StatusCode(),
			len(setCookies),
		)
		return nil, ErrLoginFailed
	}
	jar.add(setCookies)

	final, err := c.followRedirects(ctx, &jar, res.Header().Get("Location"))
	if err != nil {
		return nil, err
	}

	gymID, numeric, err := extractGymID(final.Body())
	if err != nil {
		c.tel.ReportBroken(report_client_login, err, final.Request.URL)
		return nil, err
	}

	c.tel.ReportDebug("logged in", gymID, len(jar))
	return newSession(c, jar, gymID, numeric), nil
}

func (c *Client) followRedirects(ctx context.Context, jar *cookieJar, location string) (*resty.Response, error) {
	for hop := 0; hop < maxRedirects; hop++ {
		target, err := c.resolve(location)
		if err != nil {
			c.tel.ReportBroken(
				report_client_login,
				fmt.Errorf("parse redirect location: %w", err),
				location,
			)
			return nil, fmt.Errorf("clubworx: login: %w", err)
		}

		req := c.http.R().SetContext(ctx)
		if header := cookieHeader(*jar); header != "" {
			req.SetHeader("Cookie", header)
		}
		res, err := req.Get(target)
		if err != nil {
			c.tel.ReportBroken(
				report_client_login,
				fmt.Errorf("redirect hop %d: %w", hop+1, err),
				target,
			)
			return nil, fmt.Errorf("clubworx: login: %w", err)
		}
		jar.add(res.Header().Values("Set-Cookie"))

		if !isRedirect(res.StatusCode()) {
			return res, nil
		}
		location = res.Header().Get("Location")
	}

	c.tel.ReportBroken(report_client_login, ErrTooManyRedirects, location)
	return nil, ErrTooManyRedirects
}

// Restore rebuilds a Session out of previously exported data.
func (c *Client) Restore(data SessionData) (*Session, error) {
	if data.Cookies == nil || data.GymID == "" {
		c.tel.ReportWarning(report_client_restore, ErrInvalidSessionData)
		return nil, ErrInvalidSessionData
	}
	cookies := make(cookieJar, len(data.Cookies))
	copy(cookies, data.Cookies)
	return newSession(c, cookies, data.GymID, data.numericGymID), nil
}

// FromJSON is Restore on the serialized form produced by Session.MarshalJSON.
func (c *Client) FromJSON(data []byte) (*Session, error) {
	parsed, err := ParseSessionData(data)
	if err != nil {
		c.tel.ReportWarning(report_client_restore, err)
		return nil, err
	}
	return c.Restore(parsed)
}

var defaultClient = sync.OnceValues(func() (*Client, error) {
	return NewClient(ClientOptions{}, telemetry.SlogAPI{})
})

// Login signs in against DefaultBaseUrl.
func Login(ctx context.Context, email, password string) (*Session, error) {
	client, err := defaultClient()
	if err != nil {
		return nil, err
	}
	return client.Login(ctx, email, password)
}

// FromJSON restores a session against DefaultBaseUrl.
func FromJSON(data []byte) (*Session, error) {
	client, err := defaultClient()
	if err != nil {
		return nil, err
	}
	return client.FromJSON(data)
}

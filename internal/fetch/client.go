package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"github.com/nao1215/htmldepth/internal/config"
	"github.com/nao1215/htmldepth/internal/tor"
)

// maxRedirects caps redirect chains. The final 3xx is returned as-is and
// then rejected as a non-2xx status.
const maxRedirects = 10

// Fetcher retrieves a document by locator.
// Implementations return the full text or an error matching ErrTransport,
// never a partial document.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (string, error)
}

// RequestConfig holds request settings for one host.
type RequestConfig struct {
	// Cookie is a raw Cookie header value ("name=value; other=value").
	Cookie string

	// Headers are extra request headers.
	Headers map[string]string

	// UserAgent overrides the client User-Agent when non-empty.
	UserAgent string
}

// Client fetches documents over HTTP(S), optionally through a SOCKS5 proxy.
// A Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client

	timeout      time.Duration
	userAgent    string
	maxBodySize  int64
	proxyAddress string

	// requestConfig resolves per-host headers and cookies.
	requestConfig func(host string) RequestConfig

	// limiter spaces out requests across all fetches of this client.
	limiter *rate.Limiter

	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the overall timeout of a single fetch.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxBodySize sets the largest document accepted, in bytes.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithProxy routes every request through the SOCKS5 proxy at addr (host:port).
// A proxy is required for .onion locators.
func WithProxy(addr string) Option {
	return func(c *Client) {
		c.proxyAddress = addr
	}
}

// WithRequestConfig sets the resolver for per-host cookies and headers.
func WithRequestConfig(resolve func(host string) RequestConfig) Option {
	return func(c *Client) {
		c.requestConfig = resolve
	}
}

// WithRateLimit allows at most perSecond requests per second, with a burst of one.
// Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Proxy and timeout
// options are not applied to a supplied client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client. It fails only for an invalid proxy address.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		timeout:     config.DefaultTimeout,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		hc, err := c.newHTTPClient()
		if err != nil {
			return nil, err
		}
		c.httpClient = hc
	}

	if c.requestConfig != nil {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		clone := *c.httpClient
		clone.Transport = &headerInjectingTransport{base: base, resolve: c.requestConfig}
		c.httpClient = &clone
	}

	return c, nil
}

// newHTTPClient builds the default HTTP client, dialing through the proxy
// when one is configured.
func (c *Client) newHTTPClient() (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	transport.MaxIdleConnsPerHost = 2
	transport.IdleConnTimeout = 30 * time.Second

	if c.proxyAddress != "" {
		if !isValidProxyAddress(c.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}

		dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, &net.Dialer{Timeout: c.timeout})
		if err != nil {
			return nil, err
		}

		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// Fetch retrieves the document at locator and returns it as text.
// Every failure is a *TransportError.
func (c *Client) Fetch(ctx context.Context, locator string) (string, error) {
	u, err := c.parseLocator(locator)
	if err != nil {
		return "", &TransportError{URL: locator, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &TransportError{URL: locator, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", &TransportError{URL: locator, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.8")

	c.logger.Debug("fetching document", "url", locator)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{URL: locator, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &TransportError{URL: locator, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	text, err := c.readBody(resp.Body)
	if err != nil {
		return "", &TransportError{URL: locator, Err: err}
	}

	c.logger.Debug("document fetched",
		"url", locator,
		"status", resp.StatusCode,
		"bytes", len(text),
		"elapsed", time.Since(start),
	)

	return text, nil
}

// parseLocator validates the locator before any network activity.
func (c *Client) parseLocator(locator string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return nil, errors.Join(ErrInvalidLocator, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidLocator
	}

	if host := u.Hostname(); tor.IsOnionHost(host) {
		if !tor.IsValidV3Address(host) {
			return nil, ErrInvalidOnionAddress
		}
		if c.proxyAddress == "" {
			return nil, ErrOnionWithoutProxy
		}
	}

	return u, nil
}

// readBody reads the whole body as Unicode text. A leading byte order mark
// selects the encoding and is dropped; otherwise the body is UTF-8 and
// invalid sequences become U+FFFD.
func (c *Client) readBody(body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, c.maxBodySize+1))
	if err != nil {
		return "", err
	}
	if int64(len(raw)) > c.maxBodySize {
		return "", ErrBodyTooLarge
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// isValidProxyAddress reports whether address is host:port with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// headerInjectingTransport adds the per-host cookie and headers to every
// request, redirects included.
type headerInjectingTransport struct {
	base    http.RoundTripper
	resolve func(host string) RequestConfig
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rc := t.resolve(req.URL.Hostname())
	if rc.Cookie == "" && len(rc.Headers) == 0 && rc.UserAgent == "" {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())

	if rc.Cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+rc.Cookie)
		} else {
			clone.Header.Set("Cookie", rc.Cookie)
		}
	}
	if rc.UserAgent != "" {
		clone.Header.Set("User-Agent", rc.UserAgent)
	}
	for key, value := range rc.Headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

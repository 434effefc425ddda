// Package httpclient provides a configurable HTTP client with proxy support.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ngodn/soluna/pkg/config"
	"github.com/ngodn/soluna/pkg/logging"

	"golang.org/x/time/rate"
)

// Client wraps http.Client with proxy routing, browser TLS fingerprinting
// for Cloudflare-fronted hosts, and an outbound rate limit.
type Client struct {
	defaultClient *http.Client
	utlsClient    *http.Client
	proxyClients  map[string]*http.Client
	// utls clients dialing through a proxy, keyed by proxy URL
	utlsProxyClients map[string]*http.Client
	routes           []config.TransportRoute
	globalProxies    []string
	utlsDomains      []string
	limiter          *rate.Limiter
	timeout          time.Duration
	mu               sync.RWMutex
	log              *logging.Logger
}

// ipv4DialContext forces IPv4-only connections.
func ipv4DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if network == "tcp" {
		network = "tcp4"
	}
	d := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 60 * time.Second,
	}
	return d.DialContext(ctx, network, addr)
}

// New creates a new HTTP client with the given configuration.
func New(cfg *config.Config, log *logging.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		proxyClients:     make(map[string]*http.Client),
		utlsProxyClients: make(map[string]*http.Client),
		routes:           cfg.TransportRoutes,
		globalProxies:    cfg.GlobalProxies,
		utlsDomains:      cfg.UTLSDomains,
		timeout:          timeout,
		log:              log.WithComponent("httpclient"),
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	c.defaultClient = &http.Client{
		Transport: &http.Transport{
			DialContext:           ipv4DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: timeout,
		},
		Timeout: timeout,
	}

	c.utlsClient = &http.Client{
		Transport: newUTLSRoundTripper("", ipv4DialContext),
		Timeout:   timeout,
	}

	return c
}

// needsUTLS returns true if the URL requires browser-like TLS fingerprinting.
func (c *Client) needsUTLS(targetURL string) bool {
	lower := strings.ToLower(targetURL)
	if !strings.HasPrefix(lower, "https://") {
		return false
	}
	for _, domain := range c.utlsDomains {
		if domain != "" && strings.Contains(lower, strings.ToLower(domain)) {
			return true
		}
	}
	return false
}

// Do executes an HTTP request, routing through proxies as configured.
// It blocks on the outbound rate limiter first. Requests without a
// User-Agent get the default browser one.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", config.DefaultUserAgent)
	}
	client := c.getClientForURL(req.URL.String())
	return client.Do(req)
}

// getClientForURL returns the appropriate HTTP client based on URL routing
// rules. Fingerprinted hosts keep the utls transport and dial through the
// same proxy any other host would use.
func (c *Client) getClientForURL(targetURL string) *http.Client {
	proxyURL, disableSSL := c.routeFor(targetURL)

	if !disableSSL && c.needsUTLS(targetURL) {
		c.log.Debug("using utls client", "url", targetURL, "proxy", proxyURL)
		return c.getOrCreateUTLSClient(proxyURL)
	}
	if proxyURL != "" {
		return c.getOrCreateProxyClient(proxyURL, disableSSL)
	}
	if disableSSL {
		return c.getInsecureClient()
	}
	return c.defaultClient
}

// routeFor resolves the proxy for targetURL. An empty proxy means a
// direct connection.
func (c *Client) routeFor(targetURL string) (proxyURL string, disableSSL bool) {
	// Transport routes are the most specific match.
	for _, route := range c.routes {
		if !strings.Contains(targetURL, route.URLPattern) {
			continue
		}
		c.log.Debug("matched transport route", "url", targetURL, "pattern", route.URLPattern, "proxy", route.Proxy, "direct", route.Direct)

		if route.Direct {
			return "", route.DisableSSL
		}
		if route.Proxy != "" {
			return route.Proxy, route.DisableSSL
		}
		if route.DisableSSL {
			return "", true
		}
	}

	if len(c.globalProxies) > 0 {
		c.log.Debug("using global proxy", "url", targetURL, "proxy", c.globalProxies[0])
		return c.globalProxies[0], false
	}
	return "", false
}

// getOrCreateUTLSClient returns the utls client dialing through proxyURL.
// A proxy that cannot be dialed falls back to the direct utls client.
func (c *Client) getOrCreateUTLSClient(proxyURL string) *http.Client {
	if proxyURL == "" {
		return c.utlsClient
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.utlsProxyClients[proxyURL]; ok {
		return client
	}

	dial, err := proxyDialer(proxyURL)
	if err != nil {
		c.log.Error("failed to create utls proxy dialer", "proxy", proxyURL, "error", err)
		return c.utlsClient
	}

	client := &http.Client{
		Transport: newUTLSRoundTripper(proxyURL, dial),
		Timeout:   c.timeout,
	}
	c.utlsProxyClients[proxyURL] = client
	c.log.Debug("created utls proxy client", "proxy", proxyURL)
	return client
}

// getOrCreateProxyClient returns a cached proxy client or creates a new one.
func (c *Client) getOrCreateProxyClient(proxyURL string, disableSSL bool) *http.Client {
	cacheKey := proxyURL
	if disableSSL {
		cacheKey += ":insecure"
	}

	c.mu.RLock()
	if client, ok := c.proxyClients[cacheKey]; ok {
		c.mu.RUnlock()
		return client
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.proxyClients[cacheKey]; ok {
		return client
	}

	client := c.createProxyClient(proxyURL, disableSSL)
	c.proxyClients[cacheKey] = client
	c.log.Debug("created proxy client", "proxy", proxyURL, "disable_ssl", disableSSL)

	return client
}

// createProxyClient creates a new HTTP client for the given proxy.
func (c *Client) createProxyClient(proxyURL string, disableSSL bool) *http.Client {
	transport := &http.Transport{
		DialContext:           ipv4DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if disableSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if proxyURL == "" {
		return &http.Client{Transport: transport, Timeout: c.timeout}
	}

	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		c.log.Error("failed to parse proxy URL", "url", proxyURL, "error", err)
		return c.defaultClient
	}

	switch parsedURL.Scheme {
	case "socks5", "socks5h":
		dial, err := proxyDialer(proxyURL)
		if err != nil {
			c.log.Error("failed to create SOCKS5 dialer", "error", err)
			return c.defaultClient
		}
		transport.DialContext = dial
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	default:
		c.log.Warn("unsupported proxy scheme", "scheme", parsedURL.Scheme)
		return c.defaultClient
	}

	return &http.Client{Transport: transport, Timeout: c.timeout}
}

// getInsecureClient returns a client that skips SSL verification.
func (c *Client) getInsecureClient() *http.Client {
	return c.getOrCreateProxyClient("", true)
}

// CloseIdleConnections closes idle connections on every cached client.
func (c *Client) CloseIdleConnections() {
	c.defaultClient.CloseIdleConnections()
	c.utlsClient.CloseIdleConnections()

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, client := range c.proxyClients {
		client.CloseIdleConnections()
	}
	for _, client := range c.utlsProxyClients {
		client.CloseIdleConnections()
	}
}

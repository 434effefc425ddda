package httpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// utlsRoundTripper implements http.RoundTripper with a Chrome TLS
// fingerprint. HTTP/2 connections are pooled per host; HTTP/1.1
// connections live as long as their response body.
type utlsRoundTripper struct {
	proxyURL    string
	dial        dialFunc
	rootCAs     *x509.CertPool
	h2Transport *http2.Transport

	mu    sync.Mutex
	conns map[string]*http2.ClientConn
}

func newUTLSRoundTripper(proxyURL string, dial dialFunc) *utlsRoundTripper {
	return &utlsRoundTripper{
		proxyURL: proxyURL,
		dial:     dial,
		h2Transport: &http2.Transport{
			IdleConnTimeout: 90 * time.Second,
			ReadIdleTimeout: 30 * time.Second,
		},
		conns: make(map[string]*http2.ClientConn),
	}
}

func (t *utlsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return nil, fmt.Errorf("utls transport: unsupported scheme %q", req.URL.Scheme)
	}

	addr := req.URL.Host
	if req.URL.Port() == "" {
		addr = net.JoinHostPort(req.URL.Hostname(), "443")
	}

	if cc := t.idleConn(addr); cc != nil {
		resp, err := cc.RoundTrip(req)
		if err == nil {
			return resp, nil
		}
		t.dropConn(addr, cc)
		if !replayable(req) {
			return nil, err
		}
	}

	uconn, err := t.dialTLS(req.Context(), addr, req.URL.Hostname())
	if err != nil {
		return nil, err
	}

	if uconn.ConnectionState().NegotiatedProtocol == "h2" {
		cc, err := t.h2Transport.NewClientConn(uconn)
		if err != nil {
			uconn.Close()
			return nil, err
		}
		t.putConn(addr, cc)
		return cc.RoundTrip(req)
	}

	return t.doHTTP1Request(uconn, req)
}

func (t *utlsRoundTripper) dialTLS(ctx context.Context, addr, serverName string) (*utls.UConn, error) {
	conn, err := t.dial(ctx, "tcp4", addr)
	if err != nil {
		return nil, err
	}

	uconn := utls.UClient(conn, &utls.Config{ServerName: serverName, RootCAs: t.rootCAs}, utls.HelloChrome_120)
	if err := uconn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return uconn, nil
}

// idleConn returns a pooled connection that can take another stream.
func (t *utlsRoundTripper) idleConn(addr string) *http2.ClientConn {
	t.mu.Lock()
	defer t.mu.Unlock()

	cc, ok := t.conns[addr]
	if !ok {
		return nil
	}
	// Full or draining connections close themselves once their streams end.
	if !cc.CanTakeNewRequest() {
		delete(t.conns, addr)
		return nil
	}
	return cc
}

func (t *utlsRoundTripper) putConn(addr string, cc *http2.ClientConn) {
	t.mu.Lock()
	t.conns[addr] = cc
	t.mu.Unlock()
}

func (t *utlsRoundTripper) dropConn(addr string, cc *http2.ClientConn) {
	t.mu.Lock()
	if t.conns[addr] == cc {
		delete(t.conns, addr)
	}
	t.mu.Unlock()
}

// CloseIdleConnections closes pooled connections with no active streams.
func (t *utlsRoundTripper) CloseIdleConnections() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for addr, cc := range t.conns {
		if cc.State().StreamsActive == 0 {
			cc.Close()
			delete(t.conns, addr)
		}
	}
}

func (t *utlsRoundTripper) doHTTP1Request(conn net.Conn, req *http.Request) (*http.Response, error) {
	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, err
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Close the connection together with the body.
	resp.Body = &connCloser{resp.Body, conn}
	return resp, nil
}

type connCloser struct {
	io.ReadCloser
	conn net.Conn
}

func (c *connCloser) Close() error {
	c.ReadCloser.Close()
	return c.conn.Close()
}

func replayable(req *http.Request) bool {
	if req.Body != nil && req.Body != http.NoBody {
		return false
	}
	return req.Method == http.MethodGet || req.Method == http.MethodHead
}

// proxyDialer returns a dial function that tunnels through proxyURL:
// SOCKS5 natively, HTTP(S) proxies with CONNECT.
func proxyDialer(proxyURL string) (dialFunc, error) {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy URL: %w", err)
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(parsed, proxy.Direct)
		if err != nil {
			return nil, err
		}
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			return contextDialer.DialContext, nil
		}
		return func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}, nil
	case "http", "https":
		return connectDialer(parsed), nil
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", parsed.Scheme)
	}
}

// connectDialer opens a tunnel to addr through an HTTP proxy.
func connectDialer(proxyURL *url.URL) dialFunc {
	proxyAddr := proxyURL.Host
	if proxyURL.Port() == "" {
		port := "80"
		if proxyURL.Scheme == "https" {
			port = "443"
		}
		proxyAddr = net.JoinHostPort(proxyURL.Hostname(), port)
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := ipv4DialContext(ctx, network, proxyAddr)
		if err != nil {
			return nil, err
		}

		if proxyURL.Scheme == "https" {
			tlsConn := tls.Client(conn, &tls.Config{ServerName: proxyURL.Hostname()})
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, fmt.Errorf("proxy handshake: %w", err)
			}
			conn = tlsConn
		}

		if deadline, ok := ctx.Deadline(); ok {
			conn.SetDeadline(deadline)
			defer conn.SetDeadline(time.Time{})
		}

		connectReq := &http.Request{
			Method: http.MethodConnect,
			URL:    &url.URL{Opaque: addr},
			Host:   addr,
			Header: make(http.Header),
		}
		if user := proxyURL.User; user != nil {
			password, _ := user.Password()
			creds := base64.StdEncoding.EncodeToString([]byte(user.Username() + ":" + password))
			connectReq.Header.Set("Proxy-Authorization", "Basic "+creds)
		}

		if err := connectReq.Write(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("proxy CONNECT: %w", err)
		}

		br := bufio.NewReader(conn)
		resp, err := http.ReadResponse(br, connectReq)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("proxy CONNECT: %w", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			conn.Close()
			return nil, fmt.Errorf("proxy CONNECT %s: %s", addr, resp.Status)
		}
		// The server speaks only after the client hello.
		if br.Buffered() > 0 {
			conn.Close()
			return nil, errors.New("proxy CONNECT: unexpected data after response")
		}
		return conn, nil
	}
}

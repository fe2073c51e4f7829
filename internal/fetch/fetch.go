// Package fetch provides the default byte-source-by-URI collaborator: it
// resolves file:// and http(s):// URIs (plus bare filesystem paths) to an
// io.ReadCloser, the way the reader's external entities and DTD subsets are
// loaded.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedScheme is returned when a URI names a scheme this Fetcher
// does not know how to open.
var ErrUnsupportedScheme = errors.New("fetch: unsupported URI scheme")

// Fetcher is the default entity.ByteSource: it serves local files directly
// and proxies http/https requests through an optional upstream proxy, the
// way the CLI's -proxy server:port flag is wired.
type Fetcher struct {
	// Proxy is an optional "host:port" HTTP proxy used for http/https
	// requests. Empty means no proxy.
	Proxy string
	// Client is reused across requests; built lazily on first use if nil.
	Client *http.Client
	// UserAgent is sent on outgoing HTTP requests.
	UserAgent string
}

// New returns a Fetcher that talks directly (no proxy).
func New() *Fetcher {
	return &Fetcher{UserAgent: "sgmlreader/1.0"}
}

// NewWithProxy returns a Fetcher that routes http/https traffic through the
// given "host:port" proxy.
func NewWithProxy(proxy string) *Fetcher {
	return &Fetcher{Proxy: proxy, UserAgent: "sgmlreader/1.0"}
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	transport := &http.Transport{}
	if f.Proxy != "" {
		proxyURL := &url.URL{Scheme: "http", Host: f.Proxy}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	f.Client = &http.Client{Transport: transport, Timeout: 60 * time.Second}
	return f.Client
}

// Open resolves uri to a byte stream. Bare paths and file:// URIs are read
// from disk; http:// and https:// are fetched, honoring Proxy. The resolved
// URI (after following redirects) and declared content type are returned
// alongside the stream so the caller can feed them to the encoding detector.
func (f *Fetcher) Open(ctx context.Context, uri string) (rc io.ReadCloser, resolvedURI, contentType string, err error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return f.openFile(uri)
	}
	switch u.Scheme {
	case "file":
		return f.openFile(u.Path)
	case "http", "https":
		return f.openHTTP(ctx, uri)
	default:
		return nil, "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (f *Fetcher) openFile(path string) (io.ReadCloser, string, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch: opening %q: %w", path, err)
	}
	return fh, "file://" + filepath.ToSlash(abs), contentTypeFromExt(path), nil
}

func (f *Fetcher) openHTTP(ctx context.Context, uri string) (io.ReadCloser, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch: building request for %q: %w", uri, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch: requesting %q: %w", uri, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, "", "", fmt.Errorf("fetch: %q returned status %d", uri, resp.StatusCode)
	}
	resolved := uri
	if resp.Request != nil && resp.Request.URL != nil {
		resolved = resp.Request.URL.String()
	}
	return resp.Body, resolved, resp.Header.Get("Content-Type"), nil
}

func contentTypeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "text/html"
	case ".xml", ".dtd", ".ent":
		return "text/xml"
	default:
		return ""
	}
}

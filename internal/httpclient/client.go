package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/config"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/netkit/internal/neterr"
	"github.com/GriffinCanCode/netkit/internal/serializer"
	"github.com/GriffinCanCode/netkit/internal/session"
	"go.uber.org/zap"
)

const opClient = "httpclient"

// Auth is sent as "Authorization: <Type> <Token>" on a single request.
// An empty Type means Bearer.
type Auth struct {
	Token string
	Type  string
}

// Success receives the deserialized response value
type Success func(resp *http.Response, value any)

// Failure receives any error after the request was created: transport,
// validation, content type, decode or cancellation
type Failure func(resp *http.Response, err error)

// DownloadSuccess receives the final path of a downloaded file
type DownloadSuccess func(resp *http.Response, path string)

// Client issues requests relative to a base URL through a session
// manager. Parameters are sent as JSON bodies, or as a query string for
// GET, HEAD and DELETE.
type Client struct {
	baseURL *url.URL
	manager *session.Manager

	mu                sync.RWMutex
	requestSerializer serializer.RequestSerializer
}

// New creates a client for baseURL. A nil manager gets a fresh one with
// default options.
func New(baseURL string, manager *session.Manager) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if manager == nil {
		manager = session.New(session.Options{})
	}
	return &Client{
		baseURL:           base,
		manager:           manager,
		requestSerializer: serializer.NewJSONRequestSerializer(),
	}, nil
}

// NewFromConfig creates a client and its manager from configuration
func NewFromConfig(cfg *config.Config, logger *zap.Logger, metrics *monitoring.Metrics) (*Client, error) {
	manager, err := session.NewFromConfig(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	c, err := New(cfg.Session.BaseURL, manager)
	if err != nil {
		return nil, err
	}
	if cfg.Session.UserAgent != "" {
		rs := serializer.NewJSONRequestSerializer()
		rs.SetHeader("User-Agent", cfg.Session.UserAgent)
		c.SetRequestSerializer(rs)
	}
	return c, nil
}

// parseBaseURL accepts an empty base, which leaves paths unresolved. A
// non-empty base must be absolute; its path always ends in "/" so that
// relative paths extend it instead of replacing its last segment.
func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}
	return u, nil
}

// BaseURL returns a copy of the base URL, or nil
func (c *Client) BaseURL() *url.URL {
	if c.baseURL == nil {
		return nil
	}
	u := *c.baseURL
	return &u
}

// Manager returns the underlying session manager
func (c *Client) Manager() *session.Manager {
	return c.manager
}

// RequestSerializer returns the serializer used for new requests
func (c *Client) RequestSerializer() serializer.RequestSerializer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requestSerializer
}

// SetRequestSerializer replaces the request serializer
func (c *Client) SetRequestSerializer(s serializer.RequestSerializer) {
	if s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestSerializer = s
}

// URL resolves path against the base URL following RFC 3986
func (c *Client) URL(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, neterr.Wrap(neterr.KindSerialization, opClient, "invalid path", err)
	}
	if c.baseURL == nil {
		if !ref.IsAbs() {
			return nil, neterr.Newf(neterr.KindSerialization, opClient, "relative path %q without base url", path)
		}
		return ref, nil
	}
	return c.baseURL.ResolveReference(ref), nil
}

// NewRequest resolves path and serializes params into a request
func (c *Client) NewRequest(ctx context.Context, method, path string, params any, auth *Auth) (*http.Request, error) {
	u, err := c.URL(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, neterr.Wrap(neterr.KindSerialization, opClient, "invalid request", err)
	}
	req, err = c.RequestSerializer().SerializeRequest(req, params)
	if err != nil {
		return nil, err
	}
	if auth != nil && auth.Token != "" {
		req.Header.Set("Authorization", serializer.AuthorizationValue(auth.Token, auth.Type))
	}
	return req, nil
}

// Do runs a data task. Request construction errors are returned
// directly; everything after that reaches success or failure exactly
// once.
func (c *Client) Do(ctx context.Context, method, path string, params any, auth *Auth, success Success, failure Failure) (*session.Task, error) {
	req, err := c.NewRequest(ctx, method, path, params, auth)
	if err != nil {
		return nil, err
	}
	return c.manager.DataTask(req, dataCompletion(success, failure))
}

// GET sends params as a query string
func (c *Client) GET(ctx context.Context, path string, params any, auth *Auth, success Success, failure Failure) (*session.Task, error) {
	return c.Do(ctx, http.MethodGet, path, params, auth, success, failure)
}

// POST sends params as the request body
func (c *Client) POST(ctx context.Context, path string, params any, auth *Auth, success Success, failure Failure) (*session.Task, error) {
	return c.Do(ctx, http.MethodPost, path, params, auth, success, failure)
}

// PUT sends params as the request body
func (c *Client) PUT(ctx context.Context, path string, params any, auth *Auth, success Success, failure Failure) (*session.Task, error) {
	return c.Do(ctx, http.MethodPut, path, params, auth, success, failure)
}

// DELETE sends params as a query string
func (c *Client) DELETE(ctx context.Context, path string, params any, auth *Auth, success Success, failure Failure) (*session.Task, error) {
	return c.Do(ctx, http.MethodDelete, path, params, auth, success, failure)
}

// Download fetches path into a file chosen by destination; nil uses the
// manager's default. Progress is available from the returned task.
func (c *Client) Download(ctx context.Context, path string, auth *Auth, destination session.Destination, success DownloadSuccess, failure Failure) (*session.Task, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil, auth)
	if err != nil {
		return nil, err
	}
	return c.manager.DownloadTask(req, destination, func(resp *http.Response, filePath string, err error) {
		if err != nil {
			if failure != nil {
				failure(resp, err)
			}
			return
		}
		if success != nil {
			success(resp, filePath)
		}
	})
}

// Upload sends data as the body of a method request to path
func (c *Client) Upload(ctx context.Context, method, path string, data []byte, auth *Auth, success Success, failure Failure) (*session.Task, error) {
	req, err := c.NewRequest(ctx, method, path, nil, auth)
	if err != nil {
		return nil, err
	}
	return c.manager.UploadTask(req, data, dataCompletion(success, failure))
}

func dataCompletion(success Success, failure Failure) session.DataCompletion {
	return func(resp *http.Response, value any, err error) {
		if err != nil {
			if failure != nil {
				failure(resp, err)
			}
			return
		}
		if success != nil {
			success(resp, value)
		}
	}
}

package serializer

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/netkit/internal/neterr"
	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
)

const opRequest = "serializer.request"

// DefaultUserAgent is sent when no User-Agent header is configured
const DefaultUserAgent = "netkit/1.0"

// RequestSerializer turns a request and a parameter graph into a
// transport-ready request, or fails with a serialization error.
type RequestSerializer interface {
	SerializeRequest(req *http.Request, params any) (*http.Request, error)
}

type timeoutKey struct{}

// WithTimeout records a per-request timeout on ctx. The session starts the
// clock when the task is created.
func WithTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, timeoutKey{}, d)
}

// TimeoutFromContext returns the timeout recorded by WithTimeout
func TimeoutFromContext(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(timeoutKey{}).(time.Duration)
	return d, ok && d > 0
}

type bodyEncoder func(params any) (body []byte, contentType string, err error)

// HTTPRequestSerializer encodes parameters as a query string for the
// methods in MethodsEncodingParametersInURI and as a form body otherwise,
// and applies default headers.
type HTTPRequestSerializer struct {
	mu           sync.RWMutex
	headers      http.Header
	methodsInURI map[string]bool
	compressBody bool
	timeout      time.Duration

	encodeBody bodyEncoder
}

// NewHTTPRequestSerializer creates a serializer with default headers
func NewHTTPRequestSerializer() *HTTPRequestSerializer {
	s := &HTTPRequestSerializer{
		headers: http.Header{},
		methodsInURI: map[string]bool{
			http.MethodGet:    true,
			http.MethodHead:   true,
			http.MethodDelete: true,
		},
		encodeBody: encodeForm,
	}
	s.headers.Set("Accept-Language", "en;q=1")
	s.headers.Set("User-Agent", DefaultUserAgent)
	return s
}

// SetHeader sets a default header; an empty value removes it
func (s *HTTPRequestSerializer) SetHeader(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		s.headers.Del(key)
		return
	}
	s.headers.Set(key, value)
}

// Header returns the default value of a header
func (s *HTTPRequestSerializer) Header(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headers.Get(key)
}

// Headers returns a copy of all default headers
func (s *HTTPRequestSerializer) Headers() http.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headers.Clone()
}

// SetBasicAuth configures basic authentication
func (s *HTTPRequestSerializer) SetBasicAuth(username, password string) {
	s.SetHeader("Authorization", EncodeBasicAuth(username, password))
}

// SetAuthToken sets "Authorization: <tokenType> <token>"
func (s *HTTPRequestSerializer) SetAuthToken(token, tokenType string) {
	s.SetHeader("Authorization", AuthorizationValue(token, tokenType))
}

// ClearAuthorization removes the Authorization default header
func (s *HTTPRequestSerializer) ClearAuthorization() {
	s.SetHeader("Authorization", "")
}

// SetMethodsEncodingParametersInURI replaces the set of methods whose
// parameters go into the query string
func (s *HTTPRequestSerializer) SetMethodsEncodingParametersInURI(methods ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methodsInURI = make(map[string]bool, len(methods))
	for _, m := range methods {
		s.methodsInURI[strings.ToUpper(m)] = true
	}
}

// EncodesParametersInURI reports whether method puts parameters in the URL
func (s *HTTPRequestSerializer) EncodesParametersInURI(method string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.methodsInURI[strings.ToUpper(method)]
}

// SetCompressBody enables gzip Content-Encoding for request bodies
func (s *HTTPRequestSerializer) SetCompressBody(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compressBody = enabled
}

// SetTimeout sets the per-request timeout stamped on serialized requests.
// Zero leaves the session timeout alone.
func (s *HTTPRequestSerializer) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

// Timeout returns the per-request timeout
func (s *HTTPRequestSerializer) Timeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeout
}

// NewRequest builds a request for method and rawURL and serializes params
// into it
func (s *HTTPRequestSerializer) NewRequest(ctx context.Context, method, rawURL string, params any) (*http.Request, error) {
	if method == "" {
		return nil, neterr.New(neterr.KindSerialization, opRequest, "method required")
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, neterr.Wrap(neterr.KindSerialization, opRequest, "invalid request", err)
	}
	return s.SerializeRequest(req, params)
}

// SerializeRequest returns a copy of req with default headers applied and
// params encoded
func (s *HTTPRequestSerializer) SerializeRequest(req *http.Request, params any) (*http.Request, error) {
	if req == nil {
		return nil, neterr.New(neterr.KindSerialization, opRequest, "request required")
	}

	s.mu.RLock()
	headers := s.headers.Clone()
	inURI := s.methodsInURI[strings.ToUpper(req.Method)]
	compress := s.compressBody
	timeout := s.timeout
	s.mu.RUnlock()

	ctx := req.Context()
	if timeout > 0 {
		ctx = WithTimeout(ctx, timeout)
	}
	out := req.Clone(ctx)
	for key, values := range headers {
		if out.Header.Get(key) == "" {
			out.Header[key] = values
		}
	}

	if params == nil {
		return out, nil
	}

	if inURI {
		query, err := QueryString(params)
		if err != nil {
			return nil, err
		}
		if query != "" {
			if out.URL.RawQuery != "" {
				out.URL.RawQuery += "&" + query
			} else {
				out.URL.RawQuery = query
			}
		}
		return out, nil
	}

	body, contentType, err := s.encodeBody(params)
	if err != nil {
		return nil, err
	}
	if out.Header.Get("Content-Type") == "" {
		out.Header.Set("Content-Type", contentType)
	}
	if compress {
		body, err = gzipBody(body)
		if err != nil {
			return nil, neterr.Wrap(neterr.KindSerialization, opRequest, "compress body", err)
		}
		out.Header.Set("Content-Encoding", "gzip")
	}
	SetBody(out, body)
	return out, nil
}

// JSONRequestSerializer encodes non-URI parameters as a JSON body
type JSONRequestSerializer struct {
	*HTTPRequestSerializer
}

// NewJSONRequestSerializer creates a JSON request serializer
func NewJSONRequestSerializer() *JSONRequestSerializer {
	base := NewHTTPRequestSerializer()
	base.encodeBody = encodeJSON
	return &JSONRequestSerializer{HTTPRequestSerializer: base}
}

// SetBody replaces req's body with data, keeping GetBody usable for
// redirects
func SetBody(req *http.Request, data []byte) {
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.ContentLength = int64(len(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// EncodeBasicAuth creates base64 encoded basic auth
func EncodeBasicAuth(username, password string) string {
	auth := username + ":" + password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(auth))
}

// AuthorizationValue formats a token for the Authorization header;
// tokenType defaults to Bearer
func AuthorizationValue(token, tokenType string) string {
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return tokenType + " " + token
}

func encodeForm(params any) ([]byte, string, error) {
	query, err := QueryString(params)
	if err != nil {
		return nil, "", err
	}
	return []byte(query), "application/x-www-form-urlencoded; charset=utf-8", nil
}

func encodeJSON(params any) ([]byte, string, error) {
	data, err := sonic.ConfigStd.Marshal(params)
	if err != nil {
		return nil, "", neterr.Wrap(neterr.KindSerialization, opRequest, "encode json body", err)
	}
	return data, "application/json", nil
}

func gzipBody(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

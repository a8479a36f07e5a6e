package serializer

import (
	"mime"
	"net/http"
	"strings"

	"github.com/GriffinCanCode/netkit/internal/neterr"
	"github.com/gabriel-vasile/mimetype"
)

const opResponse = "serializer.response"

// ResponseSerializer validates a response and decodes its body into a
// value, or fails with a validation, content-type or decode error.
type ResponseSerializer interface {
	Deserialize(resp *http.Response, body []byte) (any, error)
}

// StatusValidator is implemented by serializers that can check a
// response status on its own; download tasks use it since their body is
// a file rather than an in-memory buffer.
type StatusValidator interface {
	ValidateStatus(resp *http.Response) error
}

// StatusRange is an inclusive range of HTTP status codes
type StatusRange struct {
	Min, Max int
}

// Success is the 2xx range
var Success = StatusRange{Min: 200, Max: 299}

// HTTPResponseSerializer validates status code and content type and
// returns the body bytes unchanged.
type HTTPResponseSerializer struct {
	// AcceptableStatusCodes defaults to 200-299 when empty
	AcceptableStatusCodes []StatusRange
	// AcceptableContentTypes accepts any type when empty. Entries may use
	// a "type/*" wildcard.
	AcceptableContentTypes []string
}

// NewHTTPResponseSerializer creates a serializer accepting any 2xx response
func NewHTTPResponseSerializer() *HTTPResponseSerializer {
	return &HTTPResponseSerializer{AcceptableStatusCodes: []StatusRange{Success}}
}

// AcceptsStatus reports whether code is in an acceptable range
func (s *HTTPResponseSerializer) AcceptsStatus(code int) bool {
	ranges := s.AcceptableStatusCodes
	if len(ranges) == 0 {
		ranges = []StatusRange{Success}
	}
	for _, r := range ranges {
		if code >= r.Min && code <= r.Max {
			return true
		}
	}
	return false
}

// AcceptsContentType reports whether mediaType is acceptable
func (s *HTTPResponseSerializer) AcceptsContentType(mediaType string) bool {
	if len(s.AcceptableContentTypes) == 0 {
		return true
	}
	mediaType = strings.ToLower(mediaType)
	for _, accepted := range s.AcceptableContentTypes {
		accepted = strings.ToLower(accepted)
		if accepted == mediaType || accepted == "*/*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(accepted, "/*"); ok && strings.HasPrefix(mediaType, prefix+"/") {
			return true
		}
	}
	return false
}

// ValidateStatus implements StatusValidator
func (s *HTTPResponseSerializer) ValidateStatus(resp *http.Response) error {
	if resp == nil {
		return neterr.New(neterr.KindValidation, opResponse, "no response")
	}
	if !s.AcceptsStatus(resp.StatusCode) {
		return neterr.Newf(neterr.KindValidation, opResponse,
			"unacceptable status code %d (%s)", resp.StatusCode, http.StatusText(resp.StatusCode)).
			WithStatus(resp.StatusCode)
	}
	return nil
}

// Validate checks the status code first, then the content type. A
// response without Content-Type has its body sniffed; an empty body
// without Content-Type is accepted.
func (s *HTTPResponseSerializer) Validate(resp *http.Response, body []byte) error {
	if err := s.ValidateStatus(resp); err != nil {
		return err
	}
	if len(s.AcceptableContentTypes) == 0 {
		return nil
	}

	mediaType := MediaType(resp, body)
	if mediaType == "" {
		return nil
	}
	if !s.AcceptsContentType(mediaType) {
		return neterr.Newf(neterr.KindContentType, opResponse,
			"unacceptable content type %q", mediaType).WithStatus(resp.StatusCode)
	}
	return nil
}

// Deserialize validates the response and returns body as []byte
func (s *HTTPResponseSerializer) Deserialize(resp *http.Response, body []byte) (any, error) {
	if err := s.Validate(resp, body); err != nil {
		return nil, err
	}
	return body, nil
}

// MediaType returns the response media type without parameters. A missing
// Content-Type is detected from the body; it is empty only when both are.
func MediaType(resp *http.Response, body []byte) string {
	if resp != nil {
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			if mt, _, err := mime.ParseMediaType(ct); err == nil {
				return mt
			}
			return strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
		}
	}
	if len(body) == 0 {
		return ""
	}
	mt, _, err := mime.ParseMediaType(mimetype.Detect(body).String())
	if err != nil {
		return ""
	}
	return mt
}

package serializer

import (
	"bytes"
	"net/http"

	"github.com/GriffinCanCode/netkit/internal/neterr"
	"github.com/bytedance/sonic"
)

const opJSON = "serializer.json"

// JSONResponseSerializer validates and decodes JSON responses into
// map[string]any, []any, string, float64, bool or nil.
type JSONResponseSerializer struct {
	HTTPResponseSerializer

	// RemoveKeysWithNullValues drops object keys whose value is null,
	// recursively
	RemoveKeysWithNullValues bool
}

// NewJSONResponseSerializer accepts application/json, text/json,
// text/javascript and text/plain
func NewJSONResponseSerializer() *JSONResponseSerializer {
	return &JSONResponseSerializer{
		HTTPResponseSerializer: HTTPResponseSerializer{
			AcceptableStatusCodes: []StatusRange{Success},
			AcceptableContentTypes: []string{
				"application/json",
				"text/json",
				"text/javascript",
				"text/plain",
			},
		},
	}
}

// Deserialize validates the response and decodes body. An empty or
// whitespace-only body decodes to nil.
func (s *JSONResponseSerializer) Deserialize(resp *http.Response, body []byte) (any, error) {
	if err := s.Validate(resp, body); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var value any
	if err := sonic.ConfigStd.Unmarshal(body, &value); err != nil {
		return nil, neterr.Wrap(neterr.KindDecode, opJSON, "invalid json body", err).
			WithStatus(resp.StatusCode)
	}
	if s.RemoveKeysWithNullValues {
		value = removeNulls(value)
	}
	return value, nil
}

func removeNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if child == nil {
				delete(t, k)
				continue
			}
			t[k] = removeNulls(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = removeNulls(child)
		}
		return t
	default:
		return v
	}
}

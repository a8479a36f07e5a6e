package serializer

import (
	"net/http"
	"testing"

	"github.com/GriffinCanCode/netkit/internal/neterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(status int, contentType string) *http.Response {
	resp := &http.Response{StatusCode: status, Header: http.Header{}}
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}
	return resp
}

func TestHTTPResponseSerializerStatus(t *testing.T) {
	s := NewHTTPResponseSerializer()

	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", 200, false},
		{"no content", 204, false},
		{"upper bound", 299, false},
		{"redirect", 301, true},
		{"not found", 404, true},
		{"server error", 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := s.Deserialize(response(tt.status, ""), []byte("raw"))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, []byte("raw"), value)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, neterr.KindValidation)
			assert.Equal(t, tt.status, neterr.StatusCode(err))
			assert.Nil(t, value)
		})
	}
}

func TestHTTPResponseSerializerCustomRanges(t *testing.T) {
	s := &HTTPResponseSerializer{AcceptableStatusCodes: []StatusRange{{Min: 200, Max: 200}, {Min: 404, Max: 404}}}

	assert.True(t, s.AcceptsStatus(404))
	assert.False(t, s.AcceptsStatus(201))

	// empty ranges fall back to 2xx
	assert.True(t, (&HTTPResponseSerializer{}).AcceptsStatus(201))
}

func TestHTTPResponseSerializerContentTypes(t *testing.T) {
	s := &HTTPResponseSerializer{AcceptableContentTypes: []string{"application/json", "image/*"}}

	assert.True(t, s.AcceptsContentType("application/json"))
	assert.True(t, s.AcceptsContentType("IMAGE/PNG"))
	assert.False(t, s.AcceptsContentType("text/html"))

	_, err := s.Deserialize(response(200, "text/html; charset=utf-8"), []byte("<p>x</p>"))
	assert.ErrorIs(t, err, neterr.KindContentType)

	t.Run("status checked before content type", func(t *testing.T) {
		_, err := s.Deserialize(response(500, "text/html"), []byte("oops"))
		assert.ErrorIs(t, err, neterr.KindValidation)
		assert.NotErrorIs(t, err, neterr.KindContentType)
	})

	t.Run("missing header is sniffed", func(t *testing.T) {
		png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
		_, err := s.Deserialize(response(200, ""), png)
		assert.NoError(t, err)
	})

	t.Run("empty body without header is accepted", func(t *testing.T) {
		_, err := s.Deserialize(response(200, ""), nil)
		assert.NoError(t, err)
	})
}

func TestJSONResponseSerializer(t *testing.T) {
	s := NewJSONResponseSerializer()

	t.Run("array", func(t *testing.T) {
		value, err := s.Deserialize(response(200, "application/json"), []byte(`[1,2,3]`))
		require.NoError(t, err)
		assert.Equal(t, []any{1.0, 2.0, 3.0}, value)
	})

	t.Run("object", func(t *testing.T) {
		value, err := s.Deserialize(response(200, "application/json; charset=utf-8"), []byte(`{"name":"ada","tags":["a"]}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "ada", "tags": []any{"a"}}, value)
	})

	t.Run("text/plain accepted", func(t *testing.T) {
		value, err := s.Deserialize(response(200, "text/plain"), []byte(`"hi"`))
		require.NoError(t, err)
		assert.Equal(t, "hi", value)
	})

	t.Run("empty body", func(t *testing.T) {
		value, err := s.Deserialize(response(204, "application/json"), []byte("  \n"))
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := s.Deserialize(response(200, "application/json"), []byte(`{"name":`))
		assert.ErrorIs(t, err, neterr.KindDecode)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := s.Deserialize(response(500, "application/json"), []byte(`{"error":"boom"}`))
		assert.ErrorIs(t, err, neterr.KindValidation)
		assert.Equal(t, 500, neterr.StatusCode(err))
	})

	t.Run("html rejected", func(t *testing.T) {
		_, err := s.Deserialize(response(200, "text/html"), []byte(`<html></html>`))
		assert.ErrorIs(t, err, neterr.KindContentType)
	})
}

func TestJSONResponseSerializerRemovesNulls(t *testing.T) {
	s := NewJSONResponseSerializer()
	s.RemoveKeysWithNullValues = true

	value, err := s.Deserialize(response(200, "application/json"),
		[]byte(`{"a":null,"b":1,"c":{"d":null,"e":"x"},"f":[{"g":null}]}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"b": 1.0,
		"c": map[string]any{"e": "x"},
		"f": []any{map[string]any{}},
	}, value)
}

func TestJSONResponseSerializerImplementsStatusValidator(t *testing.T) {
	var s ResponseSerializer = NewJSONResponseSerializer()
	v, ok := s.(StatusValidator)
	require.True(t, ok)
	assert.ErrorIs(t, v.ValidateStatus(response(404, "")), neterr.KindValidation)
}

func TestStringResponseSerializer(t *testing.T) {
	s := NewStringResponseSerializer()

	t.Run("utf-8", func(t *testing.T) {
		value, err := s.Deserialize(response(200, "text/plain; charset=utf-8"), []byte("héllo"))
		require.NoError(t, err)
		assert.Equal(t, "héllo", value)
	})

	t.Run("declared latin-1", func(t *testing.T) {
		value, err := s.Deserialize(response(200, "text/plain; charset=iso-8859-1"), []byte{0x63, 0x61, 0x66, 0xe9})
		require.NoError(t, err)
		assert.Equal(t, "café", value)
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		_, err := s.Deserialize(response(200, "text/plain; charset=utf-8"), []byte{0xff, 0xfe, 0xfd})
		assert.ErrorIs(t, err, neterr.KindDecode)
	})

	t.Run("unknown charset", func(t *testing.T) {
		_, err := s.Deserialize(response(200, "text/plain; charset=x-made-up"), []byte("abc"))
		assert.ErrorIs(t, err, neterr.KindDecode)
	})

	t.Run("non-text rejected", func(t *testing.T) {
		_, err := s.Deserialize(response(200, "application/json"), []byte("{}"))
		assert.ErrorIs(t, err, neterr.KindContentType)
	})

	t.Run("empty body", func(t *testing.T) {
		value, err := s.Deserialize(response(200, "text/plain"), nil)
		require.NoError(t, err)
		assert.Equal(t, "", value)
	})
}

func TestDetectCharset(t *testing.T) {
	assert.Equal(t, "utf-8", DetectCharset([]byte("plain ascii")))
	assert.NotEqual(t, "utf-8", DetectCharset([]byte{0xff, 0xfe, 'a', 0x00, 'b', 0x00}))
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "application/json", MediaType(response(200, "Application/JSON; charset=utf-8"), nil))
	assert.Equal(t, "", MediaType(response(200, ""), nil))
	assert.Equal(t, "", MediaType(nil, nil))
	assert.Equal(t, "image/png", MediaType(response(200, ""), []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")))
}

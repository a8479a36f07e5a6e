package serializer

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/netkit/internal/neterr"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

const opText = "serializer.text"

// StringResponseSerializer decodes text responses into UTF-8 strings.
// The charset comes from the Content-Type parameter, or is detected.
type StringResponseSerializer struct {
	HTTPResponseSerializer
}

// NewStringResponseSerializer accepts any text/* response
func NewStringResponseSerializer() *StringResponseSerializer {
	return &StringResponseSerializer{
		HTTPResponseSerializer: HTTPResponseSerializer{
			AcceptableStatusCodes:  []StatusRange{Success},
			AcceptableContentTypes: []string{"text/*"},
		},
	}
}

// Deserialize validates the response and returns the body as a string
func (s *StringResponseSerializer) Deserialize(resp *http.Response, body []byte) (any, error) {
	if err := s.Validate(resp, body); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return "", nil
	}

	decoded, err := toUTF8(resp, body, opText)
	if err != nil {
		return nil, err
	}
	return string(decoded), nil
}

// toUTF8 converts body to UTF-8 using the Content-Type charset, or a
// detected one
func toUTF8(resp *http.Response, body []byte, op string) ([]byte, error) {
	label := charsetLabel(resp)
	if label == "" {
		label = DetectCharset(body)
	}
	if label == "utf-8" || label == "utf8" {
		if !utf8.Valid(body) {
			return nil, neterr.New(neterr.KindDecode, op, "body is not valid utf-8").WithStatus(resp.StatusCode)
		}
		return body, nil
	}

	r, err := charset.NewReaderLabel(label, bytes.NewReader(body))
	if err != nil {
		return nil, neterr.Wrap(neterr.KindDecode, op, "unsupported charset "+label, err).WithStatus(resp.StatusCode)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, neterr.Wrap(neterr.KindDecode, op, "decode body", err).WithStatus(resp.StatusCode)
	}
	return decoded, nil
}

// DetectCharset guesses the charset of body, defaulting to utf-8
func DetectCharset(body []byte) string {
	if utf8.Valid(body) {
		return "utf-8"
	}
	result, err := chardet.NewTextDetector().DetectBest(body)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

func charsetLabel(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}

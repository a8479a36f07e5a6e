package serializer

import (
	"bytes"
	"net/http"

	"github.com/GriffinCanCode/netkit/internal/neterr"
	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

const (
	opHTML = "serializer.html"

	// MaxHTMLSize bounds the bodies HTMLResponseSerializer will parse
	MaxHTMLSize = 10 * 1024 * 1024
)

// HTMLResponseSerializer parses HTML responses into a *goquery.Document
type HTMLResponseSerializer struct {
	HTTPResponseSerializer

	// Sanitizer, when set, is applied to the decoded body before parsing
	Sanitizer *bluemonday.Policy
}

// NewHTMLResponseSerializer accepts text/html and application/xhtml+xml
func NewHTMLResponseSerializer() *HTMLResponseSerializer {
	return &HTMLResponseSerializer{
		HTTPResponseSerializer: HTTPResponseSerializer{
			AcceptableStatusCodes:  []StatusRange{Success},
			AcceptableContentTypes: []string{"text/html", "application/xhtml+xml"},
		},
	}
}

// NewSanitizingHTMLResponseSerializer strips markup not allowed by
// bluemonday's user generated content policy
func NewSanitizingHTMLResponseSerializer() *HTMLResponseSerializer {
	s := NewHTMLResponseSerializer()
	s.Sanitizer = bluemonday.UGCPolicy()
	return s
}

// Deserialize validates the response, converts it to UTF-8 and parses it
func (s *HTMLResponseSerializer) Deserialize(resp *http.Response, body []byte) (any, error) {
	if err := s.Validate(resp, body); err != nil {
		return nil, err
	}
	if len(body) > MaxHTMLSize {
		return nil, neterr.Newf(neterr.KindDecode, opHTML, "html exceeds maximum size of %d bytes", MaxHTMLSize).
			WithStatus(resp.StatusCode)
	}

	decoded, err := toUTF8(resp, body, opHTML)
	if err != nil {
		return nil, err
	}
	if s.Sanitizer != nil {
		decoded = s.Sanitizer.SanitizeBytes(decoded)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, neterr.Wrap(neterr.KindDecode, opHTML, "invalid html body", err).WithStatus(resp.StatusCode)
	}
	return doc, nil
}

// XPath evaluates expr against a document returned by
// HTMLResponseSerializer and returns the text of each match
func XPath(doc *goquery.Document, expr string) ([]string, error) {
	if doc == nil || len(doc.Nodes) == 0 {
		return nil, nil
	}
	nodes, err := htmlquery.QueryAll(doc.Nodes[0], expr)
	if err != nil {
		return nil, neterr.Wrap(neterr.KindDecode, opHTML, "invalid xpath "+expr, err)
	}
	return nodeTexts(nodes), nil
}

func nodeTexts(nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, htmlquery.InnerText(n))
	}
	return out
}

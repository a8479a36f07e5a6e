// Package serializer converts between parameter graphs, HTTP requests and
// decoded response values.
//
// Request side:
//   - HTTPRequestSerializer: default headers, query-string parameters for
//     GET/HEAD/DELETE, form-encoded bodies otherwise, optional gzip
//   - JSONRequestSerializer: JSON bodies (sonic)
//   - QueryString: nested parameter encoding (a[b]=c, a[]=1)
//
// Response side:
//   - HTTPResponseSerializer: status and content-type validation, raw bytes
//   - JSONResponseSerializer: JSON decoding (sonic)
//   - StringResponseSerializer: charset-aware text decoding
//
// Every failure is a *neterr.Error with KindSerialization, KindValidation,
// KindContentType or KindDecode.
//
// Example Usage:
//
//	rs := serializer.NewJSONRequestSerializer()
//	rs.SetAuthToken(token, "Bearer")
//	req, err := rs.NewRequest(ctx, http.MethodPost, "https://api.example.com/items", map[string]any{"name": "x"})
package serializer

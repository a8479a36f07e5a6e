// Package httpclient is a REST convenience layer over session.Manager.
//
// Paths resolve against a base URL, parameters are serialized as JSON
// bodies or query strings, and results arrive through success and failure
// callbacks:
//
//	c, err := httpclient.New("https://api.example.com/v1", nil)
//	c.GET(ctx, "items", map[string]any{"page": 2}, &httpclient.Auth{Token: token},
//		func(resp *http.Response, value any) { ... },
//		func(resp *http.Response, err error) { ... })
package httpclient

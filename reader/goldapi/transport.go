package goldapi

import "net/http"

type accessTokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t accessTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("x-access-token", t.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "goldflow/1.0")
	return t.base.RoundTrip(req)
}

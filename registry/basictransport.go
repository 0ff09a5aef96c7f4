package registry

import (
	"net/http"
	"strings"
)

/*
 * BasicTransport attaches HTTP Basic credentials to requests aimed at the
 * registry itself. Requests to other hosts (the token realm, redirected
 * blob storage) are passed through untouched.
 */
type BasicTransport struct {
	Transport http.RoundTripper
	URL       string
	Username  string
	Password  string
}

func (t *BasicTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasPrefix(req.URL.String(), t.URL) && req.Header.Get("Authorization") == "" {
		if t.Username != "" || t.Password != "" {
			req.SetBasicAuth(t.Username, t.Password)
		}
	}
	resp, err := t.Transport.RoundTrip(req)
	return resp, err
}

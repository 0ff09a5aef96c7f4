// +build unit

package registry_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neonlabsorg/registrypublisher/registry"
	"github.com/neonlabsorg/registrypublisher/testutils"
	"github.com/stretchr/testify/assert"
)

func TestTagsAndManifestDigest(t *testing.T) {
	mock := testutils.SetUpMockRegistry()
	defer mock.Close()

	mock.AddTag("testprefix/testrepo", "abc1234", "sha256:feedface")
	mock.AddTag("testprefix/testrepo", "stable", "sha256:feedface")

	hub, err := registry.New(mock.Server.URL, "", "testuser", "testpassword")
	assert.NoError(t, err)

	tags, err := hub.Tags("testprefix/testrepo")
	assert.NoError(t, err)
	assert.Equal(t, []string{"abc1234", "stable"}, tags)

	digest, err := hub.ManifestDigest("testprefix/testrepo", "stable")
	assert.NoError(t, err)
	assert.Equal(t, "sha256:feedface", digest)
}

func TestTagsUnknownRepository(t *testing.T) {
	mock := testutils.SetUpMockRegistry()
	defer mock.Close()

	hub, err := registry.New(mock.Server.URL, "", "testuser", "testpassword")
	assert.NoError(t, err)

	_, err = hub.Tags("testprefix/unknown")
	assert.Error(t, err)
	// the status error is wrapped in a *url.Error by net/http
	assert.Contains(t, err.Error(), "404")
}

// a registry that demands token auth for everything except the token
// endpoint itself
func setUpTokenProtectedRegistry(t *testing.T, token string) *httptest.Server {
	mux := http.NewServeMux()
	var ts *httptest.Server

	mux.HandleFunc("/token", func(res http.ResponseWriter, req *http.Request) {
		username, password, ok := req.BasicAuth()
		if !ok || username != "testuser" || password != "testpassword" {
			res.WriteHeader(http.StatusUnauthorized)
			return
		}
		res.Write([]byte(fmt.Sprintf(`{"token": "%s"}`, token)))
	})
	mux.HandleFunc("/v2/", func(res http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer "+token {
			res.Header().Set("WWW-Authenticate",
				fmt.Sprintf(`Bearer realm="%s/token",service="test-registry"`, ts.URL))
			res.WriteHeader(http.StatusUnauthorized)
			return
		}
		res.Write([]byte(`{}`))
	})

	ts = httptest.NewServer(mux)
	return ts
}

func TestTokenAuthChallenge(t *testing.T) {
	ts := setUpTokenProtectedRegistry(t, "test-token")
	defer ts.Close()

	// New pings the registry, which exercises the full 401/token/retry flow
	_, err := registry.New(ts.URL, "repository:testprefix/testrepo:pull,push", "testuser", "testpassword")
	assert.NoError(t, err)
}

func TestTokenAuthBadCredentials(t *testing.T) {
	ts := setUpTokenProtectedRegistry(t, "test-token")
	defer ts.Close()

	_, err := registry.New(ts.URL, "", "testuser", "wrong")
	assert.Error(t, err)
}

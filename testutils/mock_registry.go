package testutils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"
)

// MockRegistry implements just enough of the docker registry v2 API for
// unit tests: the ping endpoint, tag listing and manifest digest HEADs.
type MockRegistry struct {
	Server *httptest.Server

	mu      sync.Mutex
	tags    map[string][]string
	digests map[string]string
}

func SetUpMockRegistry() *MockRegistry {
	m := MockRegistry{
		tags:    make(map[string][]string),
		digests: make(map[string]string),
	}

	router := mux.NewRouter()

	router.HandleFunc("/v2/", func(res http.ResponseWriter, req *http.Request) {
		res.Write([]byte(`{}`))
	}).Methods("GET")

	router.HandleFunc("/v2/{prefix}/{repo}/tags/list",
		func(res http.ResponseWriter, req *http.Request) {
			vars := mux.Vars(req)
			repository := fmt.Sprintf("%s/%s", vars["prefix"], vars["repo"])

			m.mu.Lock()
			tags, ok := m.tags[repository]
			m.mu.Unlock()

			if !ok {
				res.WriteHeader(http.StatusNotFound)
				res.Write([]byte(`{"errors": [{"code": "NAME_UNKNOWN"}]}`))
				return
			}
			body := `{"name": "` + repository + `", "tags": [`
			for i, tag := range tags {
				if i > 0 {
					body += ","
				}
				body += fmt.Sprintf("%q", tag)
			}
			body += `]}`
			res.Write([]byte(body))
		}).Methods("GET")

	router.HandleFunc("/v2/{prefix}/{repo}/manifests/{reference}",
		func(res http.ResponseWriter, req *http.Request) {
			vars := mux.Vars(req)
			key := fmt.Sprintf("%s/%s:%s", vars["prefix"], vars["repo"], vars["reference"])

			m.mu.Lock()
			digest, ok := m.digests[key]
			m.mu.Unlock()

			if !ok {
				res.WriteHeader(http.StatusNotFound)
				return
			}
			res.Header().Set("Docker-Content-Digest", digest)
			res.WriteHeader(http.StatusOK)
		}).Methods("HEAD")

	m.Server = httptest.NewServer(router)
	return &m
}

// AddTag registers a tag and its digest under repository ("prefix/name").
func (m *MockRegistry) AddTag(repository, tag, digest string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[repository] = append(m.tags[repository], tag)
	m.digests[fmt.Sprintf("%s:%s", repository, tag)] = digest
}

func (m *MockRegistry) Close() {
	m.Server.Close()
}

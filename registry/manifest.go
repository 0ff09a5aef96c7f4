package registry

import (
	"fmt"
	"net/http"
)

const manifestV2MediaType = "application/vnd.docker.distribution.manifest.v2+json"

// ManifestDigest resolves a tag to its content digest without downloading
// the manifest body.
func (r *Registry) ManifestDigest(repository, reference string) (string, error) {
	url := r.url("/v2/%s/manifests/%s", repository, reference)
	r.Logf("registry.manifest.head url=%s repository=%s reference=%s", url, repository, reference)

	req, err := http.NewRequest("HEAD", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", manifestV2MediaType)

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	digest := resp.Header.Get("Docker-Content-Digest")
	if digest == "" {
		return "", fmt.Errorf("no digest header for %s:%s", repository, reference)
	}
	return digest, nil
}

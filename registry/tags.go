package registry

import "encoding/json"

type tagsResponse struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// Tags lists every tag published for the given repository.
func (r *Registry) Tags(repository string) ([]string, error) {
	url := r.url("/v2/%s/tags/list", repository)
	r.Logf("registry.tags url=%s repository=%s", url, repository)

	resp, err := r.Client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var response tagsResponse
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(&response); err != nil {
		return nil, err
	}

	return response.Tags, nil
}

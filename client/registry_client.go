package client

import (
	"fmt"

	"github.com/neonlabsorg/registrypublisher/registry"
	"github.com/neonlabsorg/registrypublisher/utils"
	"github.com/spf13/viper"
)

// RegistryCredentials carries the username and password supplied on the
// command line. When empty, the per-registry auth string from config is
// used instead.
type RegistryCredentials struct {
	Username string
	Password string
}

func (rc RegistryCredentials) provided() bool {
	return rc.Username != "" || rc.Password != ""
}

type DockerRegistryClient struct {
	Hubs map[string]registry.Registry
	conf *viper.Viper
}

func InitializeDockerRegistryClient(conf *viper.Viper, creds RegistryCredentials) *DockerRegistryClient {
	publishedRepositories := conf.GetStringSlice("published_repositories")
	drc := DockerRegistryClient{
		Hubs: make(map[string]registry.Registry, len(publishedRepositories)),
	}
	for _, repoName := range publishedRepositories {
		registryScheme, registryDomain, registryPrefix, registryAuth := utils.ExtractRegistryInfo(conf, repoName)
		registryUrl := fmt.Sprintf("%s://%s", registryScheme, registryDomain)
		username, password, err := resolveCredentials(creds, registryAuth)
		if err != nil {
			panic(fmt.Errorf("docker auth string not valid: %v", err))
		}
		scope := fmt.Sprintf("repository:%s/%s:pull,push", registryPrefix, repoName)
		var hub *registry.Registry
		hub, err = registry.New(registryUrl, scope, username, password)
		if err != nil {
			panic(fmt.Errorf("starting docker registry client failed: %v", err))
		}
		drc.Hubs[repoName] = *hub
	}

	drc.conf = conf
	return &drc
}

func resolveCredentials(creds RegistryCredentials, registryAuth string) (string, string, error) {
	if creds.provided() {
		return creds.Username, creds.Password, nil
	}
	return utils.DecodeAuthString(registryAuth)
}

func (e *DockerRegistryClient) GetAllTags(repoName string) ([]string, error) {
	_, _, registryPrefix, _ := utils.ExtractRegistryInfo(e.conf, repoName)
	repoRegistry := e.Hubs[repoName]
	tags, err := repoRegistry.Tags(fmt.Sprintf("%s/%s", registryPrefix, repoName))
	return tags, err
}

func (e *DockerRegistryClient) GetTagDigest(repoName, tag string) (string, error) {
	_, _, registryPrefix, _ := utils.ExtractRegistryInfo(e.conf, repoName)
	repoRegistry := e.Hubs[repoName]
	return repoRegistry.ManifestDigest(fmt.Sprintf("%s/%s", registryPrefix, repoName), tag)
}

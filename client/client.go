package client

import (
	"context"
	"fmt"

	"github.com/neonlabsorg/registrypublisher/log"
	"github.com/neonlabsorg/registrypublisher/utils"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Clients struct {
	DockerEngineClient   *DockerEngineClient
	DockerRegistryClient *DockerRegistryClient
	PostgresClient       *PostgresClient
	conf                 *viper.Viper
	creds                RegistryCredentials
}

// Publication summarizes one completed publish: which refs were pushed and
// whether a release marker alias was applied on top of the build tag.
type Publication struct {
	RepositoryName string   `json:"repository_name"`
	Branch         string   `json:"branch"`
	Tag            string   `json:"tag"`
	Marker         string   `json:"marker,omitempty"`
	MarkerApplied  bool     `json:"marker_applied"`
	Digest         string   `json:"digest,omitempty"`
	PushedRefs     []string `json:"pushed_refs"`
}

func SetUpClients(conf *viper.Viper, creds RegistryCredentials) *Clients {
	postgresClient, err := InitializePostgresClient(conf)
	if err != nil {
		panic(fmt.Errorf("starting postgres client failed: %v", err))
	}
	clients := Clients{
		DockerEngineClient:   InitializeDockerEngineClient(),
		DockerRegistryClient: InitializeDockerRegistryClient(conf, creds),
		PostgresClient:       postgresClient,
		conf:                 conf,
		creds:                creds,
	}
	return &clients
}

// PublishTag pushes the build tag of repoName and, when the tag derived
// from the branch qualifies as a release marker, re-tags the image and
// pushes the marker alias too. The push itself is fail-fast: the first
// engine or registry error aborts the publish.
func (client *Clients) PublishTag(ctx context.Context, repoName, branch, buildTag string) (*Publication, error) {
	_, registryDomain, registryPrefix, registryAuth := utils.ExtractRegistryInfo(client.conf, repoName)
	primaryRef := utils.ConstructImageName(registryDomain, registryPrefix, repoName, buildTag)

	auth, err := client.registryAuth(registryAuth)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't construct registry auth for %s", repoName)
	}

	exists, err := client.DockerEngineClient.ImageExists(ctx, primaryRef)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't inspect local image %s", primaryRef)
	}
	if !exists {
		return nil, errors.Errorf("image %s not found in local docker engine, build it before publishing", primaryRef)
	}

	log.LogPublish("pushing build tag", repoName, buildTag)
	if err := client.DockerEngineClient.PushImage(ctx, primaryRef, auth); err != nil {
		utils.PostSlackError(client.conf, fmt.Sprintf("Error: failed to push `%s`", primaryRef))
		return nil, errors.Wrapf(err, "couldn't push %s", primaryRef)
	}

	publication := Publication{
		RepositoryName: repoName,
		Branch:         branch,
		Tag:            buildTag,
		PushedRefs:     []string{primaryRef},
	}

	marker := utils.DeriveTag(branch)
	if utils.IsReleaseMarker(marker) && marker != buildTag {
		markerRef := utils.ConstructImageName(registryDomain, registryPrefix, repoName, marker)
		if err := client.DockerEngineClient.TagImage(ctx, primaryRef, markerRef); err != nil {
			return nil, errors.Wrapf(err, "couldn't tag %s as %s", primaryRef, markerRef)
		}
		log.LogPublish("pushing release marker", repoName, marker)
		if err := client.DockerEngineClient.PushImage(ctx, markerRef, auth); err != nil {
			utils.PostSlackError(client.conf, fmt.Sprintf("Error: failed to push release marker `%s`", markerRef))
			return nil, errors.Wrapf(err, "couldn't push %s", markerRef)
		}
		publication.Marker = marker
		publication.MarkerApplied = true
		publication.PushedRefs = append(publication.PushedRefs, markerRef)
	}

	if err := client.verifyPublication(&publication); err != nil {
		return nil, errors.Wrapf(err, "pushed %s but couldn't verify it in the registry", primaryRef)
	}

	client.recordPublication(&publication)
	utils.PostSlackSuccess(client.conf, successMessage(&publication))

	return &publication, nil
}

func successMessage(publication *Publication) string {
	if publication.MarkerApplied {
		return fmt.Sprintf("Success: published `%s` (marker: `%s`)",
			publication.PushedRefs[0], publication.Marker)
	}
	return fmt.Sprintf("Success: published `%s`", publication.PushedRefs[0])
}

// verifyPublication confirms the registry lists the freshly pushed tags and
// records the content digest the build tag resolved to.
func (client *Clients) verifyPublication(publication *Publication) error {
	repoName := publication.RepositoryName
	tags, err := client.DockerRegistryClient.GetAllTags(repoName)
	if err != nil {
		return errors.Wrapf(err, "couldn't list registry tags for %s", repoName)
	}

	expected := []string{publication.Tag}
	if publication.MarkerApplied {
		expected = append(expected, publication.Marker)
	}
	for _, want := range expected {
		if !containsTag(tags, want) {
			return errors.Errorf("registry does not list tag %s for %s", want, repoName)
		}
	}

	digest, err := client.DockerRegistryClient.GetTagDigest(repoName, publication.Tag)
	if err != nil {
		return errors.Wrapf(err, "couldn't resolve digest of %s:%s", repoName, publication.Tag)
	}
	publication.Digest = digest
	return nil
}

func (client *Clients) recordPublication(publication *Publication) {
	if client.PostgresClient == nil {
		return
	}
	err := client.PostgresClient.InsertPublication(
		publication.RepositoryName, publication.Tag, publication.Marker, publication.Digest)
	if err != nil {
		log.LogAppErr(fmt.Sprintf("Couldn't record publication of %s:%s",
			publication.RepositoryName, publication.Tag), err)
	}
}

func (client *Clients) registryAuth(registryAuth string) (string, error) {
	username, password := client.creds.Username, client.creds.Password
	if !client.creds.provided() {
		var err error
		username, password, err = utils.DecodeAuthString(registryAuth)
		if err != nil {
			return "", err
		}
	}
	return ConstructRegistryAuth(username, password)
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

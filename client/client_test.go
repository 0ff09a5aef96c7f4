// +build integration

package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// branch main publishes both the build tag and the stable marker
func TestPublishMainBranch(t *testing.T) {
	te := SetUpPublishTest(t)
	defer te.TearDown()

	buildTag := "abc123"
	te.LoadBuiltImage(buildTag)

	publication, err := te.Clients.PublishTag(context.Background(), te.TestRepoName, "main", buildTag)
	assert.NoError(t, err)
	assert.True(t, publication.MarkerApplied)
	assert.Equal(t, "stable", publication.Marker)
	assert.Len(t, publication.PushedRefs, 2)
	assert.NotEmpty(t, publication.Digest)

	tags := te.RegistryTags()
	assert.Contains(t, tags, buildTag)
	assert.Contains(t, tags, "stable")

	// both refs point at the same image
	buildDigest, err := te.Clients.DockerRegistryClient.GetTagDigest(te.TestRepoName, buildTag)
	assert.NoError(t, err)
	markerDigest, err := te.Clients.DockerRegistryClient.GetTagDigest(te.TestRepoName, "stable")
	assert.NoError(t, err)
	assert.Equal(t, buildDigest, markerDigest)
}

// a feature branch gets its build tag pushed and nothing else
func TestPublishFeatureBranch(t *testing.T) {
	te := SetUpPublishTest(t)
	defer te.TearDown()

	buildTag := "def456"
	te.LoadBuiltImage(buildTag)

	publication, err := te.Clients.PublishTag(context.Background(), te.TestRepoName, "dev", buildTag)
	assert.NoError(t, err)
	assert.False(t, publication.MarkerApplied)
	assert.Equal(t, "", publication.Marker)
	assert.Len(t, publication.PushedRefs, 1)

	tags := te.RegistryTags()
	assert.Contains(t, tags, buildTag)
	assert.NotContains(t, tags, "dev")
	assert.NotContains(t, tags, "stable")
}

// ci- branches are release markers: the alias is pushed alongside the build tag
func TestPublishCIBranch(t *testing.T) {
	te := SetUpPublishTest(t)
	defer te.TearDown()

	buildTag := "fed789"
	te.LoadBuiltImage(buildTag)

	publication, err := te.Clients.PublishTag(context.Background(), te.TestRepoName, "ci-123", buildTag)
	assert.NoError(t, err)
	assert.True(t, publication.MarkerApplied)
	assert.Equal(t, "ci-123", publication.Marker)

	tags := te.RegistryTags()
	assert.Contains(t, tags, buildTag)
	assert.Contains(t, tags, "ci-123")
}

// publishing aborts when the image was never built
func TestPublishMissingLocalImage(t *testing.T) {
	te := SetUpPublishTest(t)
	defer te.TearDown()

	_, err := te.Clients.PublishTag(context.Background(), te.TestRepoName, "main", "never-built")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found in local docker engine")

	tags := te.RegistryTags()
	assert.NotContains(t, tags, "never-built")
	assert.NotContains(t, tags, "stable")
}

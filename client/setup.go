// +build integration

package client

import (
	"fmt"
	"testing"

	"github.com/neonlabsorg/registrypublisher/config"
	"github.com/neonlabsorg/registrypublisher/log"
	"github.com/neonlabsorg/registrypublisher/testutils"
	"github.com/neonlabsorg/registrypublisher/utils"
	"github.com/spf13/viper"
)

type testEngine struct {
	containerIDs []string // keep track of container IDs to be destroyed at tearDown()
	Conf         *viper.Viper
	helper       *testutils.TestHelper
	Clients      *Clients
	TestRepoName string
}

func SetUpPublishTest(t *testing.T) *testEngine {
	conf := config.SetUpConfig("test")

	te := testEngine{
		Conf:   conf,
		helper: testutils.NewTestHelper(conf),
	}

	// start registry
	regID, _, err := te.helper.StartRegistry()
	if err != nil {
		te.helper.RemoveContainer(regID)
		panic(fmt.Errorf("starting registry container failed: %v", err))
	}
	te.containerIDs = append(te.containerIDs, regID)

	// initialize the clients against the fresh registry
	te.Clients = SetUpClients(conf, RegistryCredentials{
		Username: "testuser",
		Password: "testpassword",
	})

	// we use this so much might as well keep it in the struct
	te.TestRepoName = te.Conf.GetStringSlice("published_repositories")[0]

	return &te
}

// LoadBuiltImage stands in for the CI build step: it makes the base public
// image available locally under the ref the publisher expects to push.
func (te *testEngine) LoadBuiltImage(buildTag string) string {
	_, registryDomain, registryPrefix, _ := utils.ExtractRegistryInfo(te.Conf, te.TestRepoName)
	localRef := utils.ConstructImageName(registryDomain, registryPrefix, te.TestRepoName, buildTag)
	publicImageName := te.Conf.GetString("base_public_image")
	if err := te.helper.LoadLocalImage(publicImageName, localRef); err != nil {
		panic(fmt.Errorf("couldn't load local image: %v", err))
	}
	return localRef
}

func (te *testEngine) RegistryTags() []string {
	tags, err := te.Clients.DockerRegistryClient.GetAllTags(te.TestRepoName)
	if err != nil {
		return []string{}
	}
	return tags
}

func (te *testEngine) TearDown() {
	for _, containerID := range te.containerIDs {
		if err := te.helper.RemoveContainer(containerID); err != nil {
			log.LogAppErr("Couldn't remove container", err)
		}
	}
}

package testutils

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/term"
	"github.com/docker/go-connections/nat"
	"github.com/neonlabsorg/registrypublisher/utils"
	"github.com/spf13/viper"
)

// TestHelper implements methods to manipulate a throwaway docker registry
// from integration test cases
type TestHelper struct {
	DockerClient *client.Client
	Conf         *viper.Viper
}

func NewTestHelper(conf *viper.Viper) *TestHelper {
	dcli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		panic(fmt.Errorf("could not connect to docker: %v", err))
	}

	helper := TestHelper{
		Conf:         conf,
		DockerClient: dcli,
	}

	return &helper
}

// StartRegistry starts a new local registry container without auth and
// waits until it answers on /v2/.
func (helper *TestHelper) StartRegistry() (string, string, error) {
	port, err := nat.NewPort("tcp", helper.Conf.GetString("registry_container_port"))
	if err != nil {
		return "", "", err
	}

	image := helper.Conf.GetString("registry_container_image")
	if err := helper.pullDockerImage(image); err != nil {
		return "", "", err
	}

	r, err := helper.DockerClient.ContainerCreate(
		context.Background(),
		&container.Config{
			Image: image,
			ExposedPorts: map[nat.Port]struct{}{
				port: {},
			},
		},
		&container.HostConfig{
			PortBindings: map[nat.Port][]nat.PortBinding{
				port: {{
					HostIP:   "0.0.0.0",
					HostPort: port.Port(),
				}},
			},
			NetworkMode: "bridge",
			RestartPolicy: container.RestartPolicy{
				Name: "always",
			},
		},
		nil, nil, "")
	if err != nil {
		return "", "", err
	}

	if err := helper.DockerClient.ContainerStart(context.Background(), r.ID, types.ContainerStartOptions{}); err != nil {

		// Try 4 more times
		// 5, 10, 20, 40
		for i := 0; i < 4 && err != nil; i++ {
			time.Sleep(time.Duration(5*math.Pow(2, float64(i))) * time.Second)
			err = helper.DockerClient.ContainerStart(context.Background(), r.ID, types.ContainerStartOptions{})
		}
		if err != nil {
			return "", "", err
		}
	}

	addr := "http://localhost:" + port.Port()

	if err := helper.waitForConn(addr); err != nil {
		return r.ID, addr, err
	}

	return r.ID, addr, nil
}

// RemoveContainer removes with force a container by it's container ID.
func (helper *TestHelper) RemoveContainer(ctrs ...string) (err error) {
	for _, c := range ctrs {
		err = helper.DockerClient.ContainerRemove(context.Background(), c,
			types.ContainerRemoveOptions{
				RemoveVolumes: true,
				Force:         true,
			})
	}

	return err
}

// LoadLocalImage makes a public base image available under the given local
// ref, as if CI had just built it.
func (helper *TestHelper) LoadLocalImage(publicImage, localRef string) error {
	if err := helper.pullDockerImage(publicImage); err != nil {
		return err
	}

	return helper.DockerClient.ImageTag(context.Background(), publicImage, localRef)
}

// AddImageToRegistry tags a public image and pushes it into the test
// registry directly, bypassing the publisher under test.
func (helper *TestHelper) AddImageToRegistry(publicImage, mockImage string) error {
	if err := helper.LoadLocalImage(publicImage, mockImage); err != nil {
		return err
	}

	auth, err := registryAuthFromConf(helper.Conf)
	if err != nil {
		return err
	}

	resp, err := helper.DockerClient.ImagePush(context.Background(), mockImage, types.ImagePushOptions{
		RegistryAuth: auth,
	})
	if err != nil {
		return err
	}
	defer resp.Close()

	fd, isTerm := term.GetFdInfo(os.Stdout)

	return jsonmessage.DisplayJSONMessagesStream(resp, os.Stdout, fd, isTerm, nil)
}

func registryAuthFromConf(conf *viper.Viper) (string, error) {
	testRepoName := conf.GetStringSlice("published_repositories")[0]
	_, _, _, registryAuth := utils.ExtractRegistryInfo(conf, testRepoName)
	username, password, err := utils.DecodeAuthString(registryAuth)
	if err != nil {
		return "", err
	}
	return ConstructRegistryAuth(username, password)
}

// ConstructRegistryAuth serializes the auth configuration as JSON base64 payload.
func ConstructRegistryAuth(identity, secret string) (string, error) {
	buf, err := json.Marshal(types.AuthConfig{Username: identity, Password: secret})
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(buf), nil
}

func (helper *TestHelper) pullDockerImage(image string) error {
	exists, err := helper.imageExists(image)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	resp, err := helper.DockerClient.ImagePull(context.Background(), image, types.ImagePullOptions{})
	if err != nil {
		return err
	}
	defer resp.Close()

	fd, isTerm := term.GetFdInfo(os.Stdout)

	return jsonmessage.DisplayJSONMessagesStream(resp, os.Stdout, fd, isTerm, nil)
}

func (helper *TestHelper) imageExists(image string) (bool, error) {
	_, _, err := helper.DockerClient.ImageInspectWithRaw(context.Background(), image)
	if err == nil {
		return true, nil
	}

	if client.IsErrNotFound(err) {
		return false, nil
	}

	return false, err
}

// waitForConn takes an http addr and waits until its v2 endpoint is reachable
func (helper *TestHelper) waitForConn(addr string) error {
	c := http.Client{
		Timeout: 5 * time.Second,
	}

	n := 0
	max := 10
	for n < max {
		if _, err := c.Get(addr + "/v2/"); err != nil {
			fmt.Printf("try number %d to %s: %v\n", n, addr, err)
			n++
			if n != max {
				fmt.Println("sleeping for 1 second then will try again...")
				time.Sleep(time.Second)
			} else {
				return fmt.Errorf("maximum retries for %s exceeded", addr)
			}
			continue
		} else {
			break
		}
	}

	return nil
}

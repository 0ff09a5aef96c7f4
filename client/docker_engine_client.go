package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/docker/docker/api/types"
	docker "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/term"
)

// DockerEngineClient talks to the local docker daemon that built the image
// being published. The image is expected to already be loaded there.
type DockerEngineClient struct {
	cli *docker.Client
}

func InitializeDockerEngineClient() *DockerEngineClient {
	dcli, err := docker.NewClientWithOpts(docker.FromEnv)
	if err != nil {
		panic(fmt.Errorf("could not connect to docker: %v", err))
	}
	return &DockerEngineClient{cli: dcli}
}

func (e *DockerEngineClient) ImageExists(ctx context.Context, imageRef string) (bool, error) {
	_, _, err := e.cli.ImageInspectWithRaw(ctx, imageRef)
	if err == nil {
		return true, nil
	}

	if docker.IsErrNotFound(err) {
		return false, nil
	}

	return false, err
}

func (e *DockerEngineClient) TagImage(ctx context.Context, sourceRef, targetRef string) error {
	return e.cli.ImageTag(ctx, sourceRef, targetRef)
}

// PushImage pushes imageRef and drains the daemon's progress stream, so a
// failure reported mid-stream surfaces as an error.
func (e *DockerEngineClient) PushImage(ctx context.Context, imageRef, registryAuth string) error {
	resp, err := e.cli.ImagePush(ctx, imageRef, types.ImagePushOptions{
		RegistryAuth: registryAuth,
	})
	if err != nil {
		return err
	}
	defer resp.Close()

	fd, isTerm := term.GetFdInfo(os.Stdout)

	return jsonmessage.DisplayJSONMessagesStream(resp, os.Stdout, fd, isTerm, nil)
}

// ConstructRegistryAuth serializes the auth configuration as JSON base64 payload.
func ConstructRegistryAuth(identity, secret string) (string, error) {
	buf, err := json.Marshal(types.AuthConfig{Username: identity, Password: secret})
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(buf), nil
}

// +build unit

package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/neonlabsorg/registrypublisher/client"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []PublishRequest
	fail      bool
}

func (f *fakePublisher) PublishTag(ctx context.Context, repoName, branch, buildTag string) (*client.Publication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("push rejected")
	}
	f.published = append(f.published, PublishRequest{
		RepositoryName: repoName,
		Branch:         branch,
		Tag:            buildTag,
	})
	return &client.Publication{
		RepositoryName: repoName,
		Branch:         branch,
		Tag:            buildTag,
	}, nil
}

func (f *fakePublisher) publishedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func testConf() *viper.Viper {
	conf := viper.New()
	conf.Set("webhook_url", "")
	return conf
}

func TestWorkerDrainsQueue(t *testing.T) {
	publisher := &fakePublisher{}
	pw := InitializePublishWorker(testConf(), publisher, 4)

	reqs := []PublishRequest{
		{RepositoryName: "testrepo", Branch: "main", Tag: "abc123"},
		{RepositoryName: "testrepo", Branch: "dev", Tag: "def456"},
	}
	for _, req := range reqs {
		assert.NoError(t, pw.Enqueue(req))
	}

	ctx, cancel := context.WithCancel(context.Background())
	go pw.Run(ctx)

	assert.Eventually(t, func() bool {
		return publisher.publishedCount() == len(reqs)
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	assert.Equal(t, reqs[0], publisher.published[0])
	assert.Equal(t, reqs[1], publisher.published[1])
}

func TestWorkerSurvivesPublishFailure(t *testing.T) {
	publisher := &fakePublisher{fail: true}
	pw := InitializePublishWorker(testConf(), publisher, 4)

	assert.NoError(t, pw.Enqueue(PublishRequest{RepositoryName: "testrepo", Branch: "dev", Tag: "def456"}))

	ctx, cancel := context.WithCancel(context.Background())
	go pw.Run(ctx)

	assert.Eventually(t, func() bool {
		return pw.QueuedCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	// worker keeps accepting work after a failure
	publisher.mu.Lock()
	publisher.fail = false
	publisher.mu.Unlock()
	assert.NoError(t, pw.Enqueue(PublishRequest{RepositoryName: "testrepo", Branch: "main", Tag: "abc123"}))
}

func TestEnqueueRejectsWhenFull(t *testing.T) {
	pw := InitializePublishWorker(testConf(), &fakePublisher{}, 1)

	assert.NoError(t, pw.Enqueue(PublishRequest{RepositoryName: "testrepo", Branch: "dev", Tag: "a"}))
	err := pw.Enqueue(PublishRequest{RepositoryName: "testrepo", Branch: "dev", Tag: "b"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "queue is full")
}

package worker

import (
	"context"
	"fmt"

	"github.com/neonlabsorg/registrypublisher/client"
	"github.com/neonlabsorg/registrypublisher/log"
	"github.com/neonlabsorg/registrypublisher/utils"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// PublishRequest is one queued publish: which repository to push, the
// branch that triggered it, and the build tag to publish.
type PublishRequest struct {
	RepositoryName string `json:"repository" binding:"required"`
	Branch         string `json:"branch" binding:"required"`
	Tag            string `json:"tag" binding:"required"`
}

type Publisher interface {
	PublishTag(ctx context.Context, repoName, branch, buildTag string) (*client.Publication, error)
}

// PublishWorker drains queued publish requests one at a time. A failed
// request is logged and reported but does not stop the worker.
type PublishWorker struct {
	conf      *viper.Viper
	publisher Publisher
	requests  chan PublishRequest
}

func InitializePublishWorker(conf *viper.Viper, publisher Publisher, queueSize int) *PublishWorker {
	if queueSize <= 0 {
		queueSize = 16
	}
	pw := PublishWorker{
		conf:      conf,
		publisher: publisher,
		requests:  make(chan PublishRequest, queueSize),
	}
	return &pw
}

// Enqueue hands a request to the worker without blocking the caller.
func (pw *PublishWorker) Enqueue(req PublishRequest) error {
	select {
	case pw.requests <- req:
		return nil
	default:
		return errors.Errorf("publish queue is full, rejecting %s:%s", req.RepositoryName, req.Tag)
	}
}

func (pw *PublishWorker) QueuedCount() int {
	return len(pw.requests)
}

func (pw *PublishWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-pw.requests:
			pw.publishOnce(ctx, req)
		}
	}
}

func (pw *PublishWorker) publishOnce(ctx context.Context, req PublishRequest) {
	publication, err := pw.publisher.PublishTag(ctx, req.RepositoryName, req.Branch, req.Tag)
	if err != nil {
		log.LogAppErr(fmt.Sprintf("Couldn't publish %s:%s from branch %s",
			req.RepositoryName, req.Tag, req.Branch), err)
		return
	}
	log.LogPublish("publish request completed", publication.RepositoryName, publication.Tag)
	if publication.MarkerApplied {
		utils.PostSlackUpdate(pw.conf, fmt.Sprintf(
			"Update: `%s` is now also published under release marker `%s`",
			publication.RepositoryName, publication.Marker))
	}
}

package server

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/neonlabsorg/registrypublisher/client"
	"github.com/neonlabsorg/registrypublisher/config"
	"github.com/neonlabsorg/registrypublisher/worker"
	"github.com/spf13/viper"
)

func setupGin(env config.Environment) (r *gin.Engine) {
	switch env {
	case config.Production, config.Staging:
		gin.SetMode(gin.ReleaseMode)
		r = gin.Default()
		err := r.SetTrustedProxies(nil)
		if err != nil {
			panic(fmt.Sprintf("Failed to set trusted proxies: %v\n", err))
		}
	case config.Testing, config.CI:
		gin.SetMode(gin.ReleaseMode)
		r = gin.New()
	case config.Development:
		r = gin.Default()
	default:
		panic(fmt.Sprintf("Invalid environment: %s", env))
	}
	return
}

func InitRoutes(conf *viper.Viper, clients *client.Clients, publishWorker *worker.PublishWorker) *gin.Engine {
	r := setupGin(config.GetEnv())
	r.Use(cors.Default())

	r.GET("/ping", pingHandler)
	r.GET("/publications", publicationsHandler(clients))
	r.POST("/publish", publishHandler(conf, publishWorker))

	return r
}

func pingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func publicationsHandler(clients *client.Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		if clients.PostgresClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "publish history is not configured, set database_url",
			})
			return
		}

		limit := 50
		repoName := c.Query("repo")

		var rows []client.PublishedImageTagRow
		var err error
		if repoName == "" {
			rows, err = clients.PostgresClient.GetAllPublications(limit)
		} else {
			rows, err = clients.PostgresClient.GetPublications(repoName, limit)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"publications": rows})
	}
}

func publishHandler(conf *viper.Viper, publishWorker *worker.PublishWorker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req worker.PublishRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if !isPublishedRepository(conf, req.RepositoryName) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": fmt.Sprintf("repository %s is not configured for publishing", req.RepositoryName),
			})
			return
		}

		if err := publishWorker.Enqueue(req); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"message": fmt.Sprintf("publish of %s:%s accepted", req.RepositoryName, req.Tag),
		})
	}
}

func isPublishedRepository(conf *viper.Viper, repoName string) bool {
	for _, name := range conf.GetStringSlice("published_repositories") {
		if name == repoName {
			return true
		}
	}
	return false
}

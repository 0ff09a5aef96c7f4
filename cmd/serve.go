package cmd

import (
	"context"
	"fmt"

	"github.com/neonlabsorg/registrypublisher/client"
	"github.com/neonlabsorg/registrypublisher/config"
	"github.com/neonlabsorg/registrypublisher/log"
	"github.com/neonlabsorg/registrypublisher/server"
	"github.com/neonlabsorg/registrypublisher/worker"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the publish API and async publish worker",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// same as publish: keep usage for flag errors, not runtime failures
	cmd.SilenceUsage = true

	log.SetUpLogger()
	conf := config.InitConfig(config.GetEnv())

	// service mode authenticates with the per-registry auth strings
	// from config, not command line credentials
	clients := client.SetUpClients(conf, client.RegistryCredentials{})

	publishWorker := worker.InitializePublishWorker(conf, clients, conf.GetInt("publish_queue_size"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go publishWorker.Run(ctx)

	addr := conf.GetString("listen_addr")
	if addr == "" {
		addr = ":8080"
	}
	if err := server.InitRoutes(conf, clients, publishWorker).Run(addr); err != nil {
		return fmt.Errorf("failed to start server: %v", err)
	}
	return nil
}

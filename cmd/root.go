package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/neonlabsorg/registrypublisher/client"
	"github.com/neonlabsorg/registrypublisher/config"
	"github.com/neonlabsorg/registrypublisher/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	username string
	password string
	branch   string
	buildTag string
	repoName string
)

var rootCmd = &cobra.Command{
	Use:   "registrypublisher",
	Short: "Push CI-built docker images and their release marker aliases",
	Long: `Pushes the build tag of each configured repository to its docker registry.
When the tag derived from the branch qualifies as a release marker (stable,
ci-<n> or vX.Y.Z), the image is re-tagged and pushed under that alias too.`,
	RunE: runPublish,
}

func init() {
	rootCmd.Flags().StringVarP(&username, "username", "u", "", "registry username")
	rootCmd.Flags().StringVarP(&password, "password", "p", "", "registry password")
	rootCmd.Flags().StringVarP(&branch, "branch", "b", "", "branch that triggered the build")
	rootCmd.Flags().StringVarP(&buildTag, "tag", "t", "", "build tag to push, usually the commit SHA")
	rootCmd.Flags().StringVar(&repoName, "repo", "", "publish a single configured repository instead of all of them")

	for _, required := range []string{"username", "password", "branch", "tag"} {
		if err := rootCmd.MarkFlagRequired(required); err != nil {
			panic(fmt.Errorf("marking flag %s required failed: %v", required, err))
		}
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPublish(cmd *cobra.Command, args []string) error {
	// flag errors were already rejected before this point, so a failed
	// publish should not dump usage on top of its error
	cmd.SilenceUsage = true

	log.SetUpLogger()
	conf := config.InitConfig(config.GetEnv())

	creds := client.RegistryCredentials{
		Username: username,
		Password: password,
	}
	clients := client.SetUpClients(conf, creds)

	repos, err := selectRepositories(conf, repoName)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, repo := range repos {
		publication, err := clients.PublishTag(ctx, repo, branch, buildTag)
		if err != nil {
			return err
		}
		for _, ref := range publication.PushedRefs {
			fmt.Printf("pushed %s\n", ref)
		}
	}
	return nil
}

func selectRepositories(conf *viper.Viper, only string) ([]string, error) {
	configured := conf.GetStringSlice("published_repositories")
	if len(configured) == 0 {
		return nil, fmt.Errorf("no published_repositories configured")
	}
	if only == "" {
		return configured, nil
	}
	for _, name := range configured {
		if name == only {
			return []string{only}, nil
		}
	}
	return nil, fmt.Errorf("repository %s is not configured for publishing", only)
}

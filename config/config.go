package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Environment string

const (
	CI          Environment = "ci"
	Testing     Environment = "test"
	Development Environment = "dev"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

func GetEnv() Environment {
	switch os.Getenv("ENV") {
	case "ci":
		return CI
	case "test":
		return Testing
	case "staging":
		return Staging
	case "production":
		return Production
	default:
		return Development
	}
}

func SetUpConfig(configFileName string) *viper.Viper {
	conf := viper.New()
	conf.SetConfigName(configFileName)
	conf.SetConfigType("toml")
	conf.AddConfigPath("./config")
	conf.AddConfigPath("../config")
	conf.AutomaticEnv()
	err := conf.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("reading config file failed: %v", err))
	}

	return conf
}

// InitConfig loads the config file matching the current environment.
func InitConfig(env Environment) *viper.Viper {
	return SetUpConfig(string(env))
}

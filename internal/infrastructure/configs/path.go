package configs

import (
	"flag"
	"os"

	"github.com/hilthontt/cipherroom/internal/infrastructure/env"
)

var candidatePaths = []string{
	"./config.yaml",
	"./config.yml",
	"./configs/config.yaml",
	"../../configs/config.yaml", // keep for local dev
	"/etc/cipherroom/config.yaml",
	"/app/config.yaml", // common in Docker
}

// DetermineConfigPath resolves the config file from --config, CIPHERROOM_CONFIG or
// a list of well known locations. An empty result means defaults and env only.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("CIPHERROOM_CONFIG", "")
	}

	if configPath == "" {
		configPath = firstExisting(candidatePaths)
	}

	return configPath
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

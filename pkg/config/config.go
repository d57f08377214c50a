package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load fills an envconfig-tagged struct. Outside production a .env file is
// read first so local runs need no exported variables.
func Load(spec any) error {
	if os.Getenv("ENV") != "production" {
		_ = godotenv.Load()
	}
	return envconfig.Process("", spec)
}

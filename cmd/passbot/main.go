package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/doxlab/passbot/core/cmd"
	"github.com/doxlab/passbot/internal/app"
)

func main() {
	// Optional .env for local runs; real deployments set env directly.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("passbot: %v", err)
	}
}

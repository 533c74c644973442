package main

import (
	"catalog/crawler/internal/cli"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("Application exited with error: %v", err)
	}
}

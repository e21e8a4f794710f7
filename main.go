package main

import (
	"os"

	"github.com/simulative/grade-ingestion-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

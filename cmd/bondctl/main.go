package main

import (
	"fmt"
	"os"

	"github.com/calm3366/bond-portfolio/internal/cli"
	"github.com/calm3366/bond-portfolio/internal/config"
	"github.com/calm3366/bond-portfolio/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging)

	if err := cli.NewRootCmd(cfg, logger).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

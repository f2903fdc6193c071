// Package main provides the agentbond command: campaign funding, bonding,
// and pool trading against a local database.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/agentbond/internal/platform/cmd"
	"github.com/louisbranch/agentbond/internal/platform/config"

	agentbondcmd "github.com/louisbranch/agentbond/internal/cmd/agentbond"
)

func main() {
	log.SetPrefix("[AGENTBOND] ")

	cfg, err := agentbondcmd.ParseConfig()
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cmd.RunWithTelemetry(ctx, cmd.ServiceAgentbond, func(ctx context.Context) error {
		return agentbondcmd.Run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("Error: %s", agentbondcmd.UserMessage(err, cfg.Locale))
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/mailer"
	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/queue"
	"github.com/CacconeLabYale/TsetseCheckout/internal/pkg/config"
	"github.com/CacconeLabYale/TsetseCheckout/internal/pkg/logger"
	"github.com/CacconeLabYale/TsetseCheckout/internal/workers"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "worker",
		Short:        "Run the confirmation email worker",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker()
		},
	}
}

func runWorker() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Initialize(cfg.Environment)

	smtp, err := mailer.NewMailer(&cfg.SMTP, log)
	if err != nil {
		return err
	}

	server, err := queue.NewAsynqServer(&cfg.Queue, log)
	if err != nil {
		return err
	}

	emailWorker := workers.NewEmailWorker(smtp, cfg.SMTP.Sender, logger.NewServiceLogger("email"))
	server.HandleFunc(queue.TaskTypeEmailConfirmation, emailWorker.HandleConfirmation)

	// Run blocks until SIGINT/SIGTERM and drains in-flight tasks.
	return server.Start()
}

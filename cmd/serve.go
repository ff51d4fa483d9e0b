package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bz888/solver/internal/api/server"
	"github.com/bz888/solver/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the solution service that answers /upload",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.InitLogger(true, cfg.LogPath, nil); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx, cfg)
	},
}

func init() {
	cfg.BindServerFlags(serveCmd.Flags())
}

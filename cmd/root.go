package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/bz888/solver/internal/api"
	"github.com/bz888/solver/internal/api/server"
	"github.com/bz888/solver/internal/config"
	"github.com/bz888/solver/internal/logger"
	"github.com/bz888/solver/internal/page"
	"github.com/bz888/solver/internal/prefs"
	"github.com/bz888/solver/internal/ui"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfg        = config.Default()
	configPath string
	withServer bool
)

var rootCmd = &cobra.Command{
	Use:   "solver",
	Short: "Generate a solution for a coding problem page",
	Long: "solver sends a coding problem to the solution service and shows the answer as it streams in.\n" +
		"Without a subcommand it opens the interactive popup.",
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	cfg.BindFlags(rootCmd.PersistentFlags())
	cfg.BindFetchFlags(rootCmd.Flags())
	rootCmd.Flags().BoolVar(&withServer, "serve", false, "Also run the solution service in the background")

	rootCmd.AddCommand(solveCmd, langCmd, serveCmd)
}

func Execute() {
	defer logger.Close()
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := loaded.Overlay(cmd.Flags()); err != nil {
		return err
	}
	*cfg = *loaded
	return nil
}

func newFetcher() (*api.Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return api.NewFetcher(api.Options{
		Endpoint:   cfg.Endpoint,
		Mode:       api.Mode(cfg.Mode),
		StrictUTF8: cfg.StrictUTF8,
	})
}

func runUI(cmd *cobra.Command, _ []string) error {
	fetcher, err := newFetcher()
	if err != nil {
		return err
	}
	if withServer {
		if err := cfg.ValidateServer(); err != nil {
			return fmt.Errorf("--serve: %w", err)
		}
	}

	view := ui.New(ui.Options{
		Fetcher: fetcher,
		Store:   prefs.NewFileStore(cfg.PrefsPath),
		Source:  page.NewSource(cfg.Page, cfg.Compact),
		Dev:     cfg.Dev,
	})
	if err := logger.InitLogger(cfg.Dev, cfg.LogPath, view.DebugConsole()); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if withServer {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go func() {
			if err := server.Run(ctx, cfg); err != nil {
				server.LocalLogger.Error(err)
			}
		}()
	}

	return view.Run()
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/config"
	"github.com/jonathan/transaction-desk/internal/renderauth"
	"github.com/jonathan/transaction-desk/internal/server"
	"github.com/jonathan/transaction-desk/internal/server/middleware"
	"github.com/jonathan/transaction-desk/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the submission API server",
	Long: "Start an HTTP server exposing the submission endpoints. When rendering " +
		"locally and RENDER_SHARED_SECRET is set, it also serves the rendering endpoint.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.close()

	srvCfg := server.Config{
		Port:      cfg.Server.Port,
		Submitter: comps.orchestrator,
		RateLimit: ratelimit.LoadConfig(nil),
		Logger:    logger.Named("server"),
	}
	if cfg.Renderer.Mode == config.RendererLocal {
		if authCfg, err := config.NewRenderAuthConfig(); err == nil {
			srvCfg.Renderer = comps.generator
			srvCfg.Tokens = middleware.RenderTokens(renderauth.NewService(authCfg))
		} else {
			logger.Info("rendering endpoint disabled", zap.Error(err))
		}
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}

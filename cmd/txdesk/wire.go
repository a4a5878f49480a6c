package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/attachment"
	"github.com/jonathan/transaction-desk/internal/config"
	"github.com/jonathan/transaction-desk/internal/db"
	"github.com/jonathan/transaction-desk/internal/logging"
	"github.com/jonathan/transaction-desk/internal/mailer"
	"github.com/jonathan/transaction-desk/internal/objectstore"
	"github.com/jonathan/transaction-desk/internal/pipeline"
	"github.com/jonathan/transaction-desk/internal/recordstore"
	"github.com/jonathan/transaction-desk/internal/renderauth"
	"github.com/jonathan/transaction-desk/internal/renderclient"
	"github.com/jonathan/transaction-desk/internal/rendering"
)

// loadConfig reads the config file named by --config, overlays the
// environment and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	lc := logging.Config{Environment: cfg.Log.Environment, Level: cfg.Log.Level}
	if verbose && lc.Level == "" {
		lc.Level = "debug"
	}
	return logging.New(lc)
}

// components holds everything built from config; close releases pooled
// connections.
type components struct {
	orchestrator *pipeline.Orchestrator
	generator    pipeline.Generator
	close        func()
}

func buildComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	generator, err := newGenerator(cfg, logger)
	if err != nil {
		closeStore()
		return nil, err
	}

	deps := pipeline.Dependencies{
		Store:     store,
		Generator: generator,
		Governor: attachment.NewGovernor(attachment.PDFOptimizer{}, attachment.Options{
			MaxRounds:      cfg.Governor.MaxRounds,
			ShrinkFactor:   cfg.Governor.ShrinkFactor,
			TruncateMargin: cfg.Governor.TruncateMargin,
		}, logger.Named("governor")),
	}

	if cfg.Mail.Enabled() {
		sender := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			To:       cfg.Mail.To,
		})
		deps.Mailer = mailer.New(sender, cfg.Mail.AttachmentCeilingBytes, logger.Named("mailer"))
	} else {
		logger.Info("email delivery disabled: no SMTP host configured")
	}

	if cfg.Storage.Enabled() {
		uploader, err := objectstore.NewMinioUploader(cfg.Storage, logger.Named("objectstore"))
		if err != nil {
			closeStore()
			return nil, err
		}
		deps.Uploader = uploader
	} else {
		logger.Info("object storage disabled: no endpoint configured")
	}

	orch, err := pipeline.New(deps, pipeline.Options{
		RenderTimeout:     time.Duration(cfg.Renderer.TimeoutSeconds) * time.Second,
		AttachmentCeiling: cfg.RecordStore.AttachmentCeilingBytes,
		AttachmentFields:  cfg.RecordStore.AttachmentFields,
		Logger:            logger.Named("pipeline"),
	})
	if err != nil {
		closeStore()
		return nil, err
	}

	return &components{orchestrator: orch, generator: generator, close: closeStore}, nil
}

// openStore returns the configured record store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (recordstore.Store, func(), error) {
	switch cfg.RecordStore.Backend {
	case config.BackendPostgres:
		database, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		return database, database.Close, nil
	default:
		store := recordstore.NewHTTPStore(cfg.RecordStore.BaseURL, cfg.RecordStore.APIKey,
			recordstore.WithTables(cfg.RecordStore.TransactionsTable, cfg.RecordStore.PartiesTable),
			recordstore.WithLogger(logger.Named("recordstore")))
		return store, func() {}, nil
	}
}

// newGenerator builds the in-process generator, or a client of the remote
// rendering endpoint signed with the shared secret.
func newGenerator(cfg *config.Config, logger *zap.Logger) (pipeline.Generator, error) {
	if cfg.Renderer.Mode == config.RendererRemote {
		authCfg, err := config.NewRenderAuthConfig()
		if err != nil {
			return nil, fmt.Errorf("remote rendering: %w", err)
		}
		return renderclient.New(cfg.Renderer.URL,
			renderclient.WithTokenSource(renderauth.NewService(authCfg))), nil
	}
	return newLocalGenerator(cfg.Renderer.TemplatePath, cfg.Renderer.RegularFontPath, cfg.Renderer.BoldFontPath, logger)
}

func newLocalGenerator(templatePath, regularFont, boldFont string, logger *zap.Logger) (*pipeline.LocalGenerator, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return nil, fmt.Errorf("template not found: %w", err)
	}
	fonts := rendering.FontSet{}
	if regularFont != "" {
		var err error
		fonts, err = rendering.LoadFontSet(regularFont, boldFont)
		if err != nil {
			return nil, err
		}
	}
	return pipeline.NewLocalGenerator(
		rendering.NewTemplate(templatePath),
		rendering.NewAssembler(fonts, logger.Named("rendering")),
	), nil
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/eemetrics/internal/infrastructure/config"
	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
	"github.com/felixgeelhaar/eemetrics/pkg/github"
	"github.com/felixgeelhaar/eemetrics/pkg/logging"
	"github.com/felixgeelhaar/eemetrics/pkg/sonarcloud"
	"github.com/felixgeelhaar/eemetrics/pkg/storage"
)

// loadConfig reads the config file and applies --log-level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, module string) *logging.Logger {
	return logging.New(module, logging.Catalog,
		logging.WithLevel(cfg.Log.Level),
		logging.WithWriter(os.Stderr))
}

func newGitHubClient(ctx context.Context, cfg *config.Config) (*github.Client, error) {
	if cfg.GitHub.Token == "" {
		return nil, ErrMissingGitHubToken
	}
	opts := []github.Option{github.WithLogger(newLogger(cfg, "eemetrics/github"))}
	if cfg.GitHub.BaseURL != "" {
		opts = append(opts, github.WithBaseURL(cfg.GitHub.BaseURL))
	}
	return github.NewClient(ctx, cfg.GitHub.Token, opts...)
}

func newSonarClient(cfg *config.Config) (*sonarcloud.Client, error) {
	if cfg.Sonarcloud.Token == "" {
		return nil, ErrMissingSonarcloudToken
	}
	opts := []sonarcloud.Option{sonarcloud.WithLogger(newLogger(cfg, "eemetrics/sonarcloud"))}
	if cfg.Sonarcloud.BaseURL != "" {
		opts = append(opts, sonarcloud.WithBaseURL(cfg.Sonarcloud.BaseURL))
	}
	return sonarcloud.NewClient(cfg.Sonarcloud.Token, opts...), nil
}

func openStore(ctx context.Context, cfg *config.Config) (metrics.Store, error) {
	switch cfg.Store.Kind {
	case config.StoreMongo:
		logger := storage.WithMongoLogger(newLogger(cfg, "eemetrics/mongodb"))
		var (
			store *storage.MongoStore
			err   error
		)
		if cfg.Store.URI == "" {
			store, err = storage.ConnectFromEnv(ctx, logger)
		} else {
			store, err = storage.ConnectMongo(ctx, cfg.Store.URI, logger)
		}
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil
	case config.StoreFile, "":
		store := storage.NewFilesystemStore(cfg.Store.Path)
		if err := store.Initialize(); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
}

// orgOrDefault returns flag when set, else fallback, else ErrMissingOrg.
func orgOrDefault(flag, fallback string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", ErrMissingOrg
}

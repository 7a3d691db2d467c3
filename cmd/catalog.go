package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/evalify/evalify-sub003/internal/catalog/httpapi"
	"github.com/evalify/evalify-sub003/internal/catalog/memory"
	"github.com/evalify/evalify-sub003/internal/catalog/mongodb"
	"github.com/evalify/evalify-sub003/internal/catalog/postgres"
	"github.com/evalify/evalify-sub003/internal/config"
	"github.com/evalify/evalify-sub003/internal/importer"
	"github.com/evalify/evalify-sub003/internal/sheet"
)

// openCatalog connects the configured backend. The returned func releases it.
func openCatalog(ctx context.Context, cfg config.CatalogConfig, log logrus.FieldLogger) (importer.Catalog, func(), error) {
	noop := func() {}
	log = log.WithField("backend", cfg.Backend)

	switch cfg.Backend {
	case config.BackendMemory:
		store, err := memory.Open(cfg.Fixtures)
		if err != nil {
			return nil, nil, withCode(exitUsage, err)
		}
		log.WithField("fixtures", cfg.Fixtures).Debug("using in-memory catalog")
		return store, noop, nil

	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, withCode(exitDB, err)
		}
		if cfg.EnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, nil, withCode(exitDB, err)
			}
		}
		log.Debug("connected to postgres catalog")
		return store, store.Close, nil

	case config.BackendMongo:
		store, err := mongodb.Open(mongodb.DefaultConfig(cfg.MongoURI, cfg.MongoDatabase))
		if err != nil {
			return nil, nil, withCode(exitDB, err)
		}
		log.WithField("database", cfg.MongoDatabase).Debug("connected to mongo catalog")
		return store, func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("failed to close mongo catalog")
			}
		}, nil

	case config.BackendHTTP:
		client, err := httpapi.New(cfg.HTTPBaseURL, cfg.HTTPAuthorization, cfg.HTTPTimeout)
		if err != nil {
			return nil, nil, withCode(exitUsage, err)
		}
		log.WithField("base_url", cfg.HTTPBaseURL).Debug("using remote catalog")
		return client, noop, nil
	}
	return nil, nil, withCode(exitUsage, fmt.Errorf("unknown catalog backend %q", cfg.Backend))
}

// newEngine builds the import engine from the configuration.
func newEngine(cfg *config.Config, catalog importer.Catalog, log logrus.FieldLogger) *importer.Engine {
	return importer.New(catalog, importer.Options{
		MaxRows:       cfg.Import.MaxRows,
		CommitTimeout: cfg.Import.CommitTimeout,
		Logger:        log,
	})
}

func decodeOptions(cfg *config.Config) sheet.Options {
	return sheet.Options{
		SheetName:    cfg.Import.SheetName,
		HeaderRow:    cfg.Import.HeaderRow,
		CSVDelimiter: cfg.Import.CSVDelimiter,
	}
}

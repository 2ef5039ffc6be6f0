package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AndrivA89/family-graph/internal/config"
	"github.com/AndrivA89/family-graph/internal/docstore"
	"github.com/AndrivA89/family-graph/internal/docstore/badgerstore"
	"github.com/AndrivA89/family-graph/internal/docstore/neo4jstore"
	"github.com/AndrivA89/family-graph/internal/repository"
)

// openStore connects the document store selected by cfg.Store.Driver. The
// process owns the connection; the returned func closes it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (docstore.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverNeo4j:
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URI, neo4j.BasicAuth(cfg.Neo4j.Username, cfg.Neo4j.Password, ""))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
		}
		closeDriver := func() {
			if err := driver.Close(context.Background()); err != nil {
				logger.Error("error closing Neo4j driver", "error", err)
			}
		}
		if err := driver.VerifyConnectivity(ctx); err != nil {
			closeDriver()
			return nil, nil, fmt.Errorf("failed to reach Neo4j at %s: %w", cfg.Neo4j.URI, err)
		}
		store := neo4jstore.New(driver,
			neo4jstore.WithDatabase(cfg.Neo4j.Database),
			neo4jstore.WithLogger(logger),
		)
		if err := store.EnsureIndexes(ctx,
			repository.TreesCollection,
			repository.MembersCollection,
			repository.RelationsCollection,
			repository.EventsCollection,
		); err != nil {
			closeDriver()
			return nil, nil, err
		}
		return store, closeDriver, nil

	default:
		bcfg := badgerstore.DefaultConfig(cfg.Badger.Path)
		bcfg.InMemory = cfg.Badger.InMemory
		bcfg.SyncWrites = cfg.Badger.SyncWrites
		bcfg.Logger = logger
		store, err := badgerstore.Open(bcfg)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("error closing badger store", "error", err)
			}
		}, nil
	}
}

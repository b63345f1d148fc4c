// File: cmd/devstack/providers.go
package main

import (
	"time"

	"cafe_client/internal/config"
	"cafe_client/internal/identity"
	"cafe_client/internal/platform/database"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const revocationCleanupInterval = 10 * time.Minute

func provideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db)
		_ = logger.Sync()
	}
	return db, cleanup, nil
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideRevocationList() identity.RevocationList {
	return identity.NewInMemoryRevocationList(revocationCleanupInterval)
}

// File: cmd/devstack/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"cafe_client/internal/app"
	"cafe_client/internal/cafe"
	"cafe_client/internal/config"
	"cafe_client/internal/identity"
	"cafe_client/internal/platform/logger"
	"cafe_client/internal/user"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var moduleSet = wire.NewSet(
	// Stub identity provider
	provideRevocationList,
	identity.NewTokenService,
	identity.NewGORMRepository,
	identity.NewService,
	identity.NewHandler,

	// Members
	user.NewGORMRepository,
	user.NewService,
	wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
	wire.Bind(new(cafe.MemberFinder), new(user.Repository)),
	user.NewHandler,

	// Cafés
	cafe.NewGORMRepository,
	cafe.NewService,
	cafe.NewHandler,

	app.NewServer,
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		logger.New,
		provideDatabase,
		provideRegistry,
		moduleSet,
	)
	return nil, nil, nil
}

// assembleServer builds the server on an already opened database and registry.
func assembleServer(cfg *config.Config, logger *zap.Logger, db *gorm.DB, registry *prometheus.Registry) (*app.Server, error) {
	wire.Build(moduleSet)
	return nil, nil
}

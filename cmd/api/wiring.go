package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/WorstGen/land-marketplace/internal/adapter/repository/bolt"
	"github.com/WorstGen/land-marketplace/internal/adapter/repository/memory"
	"github.com/WorstGen/land-marketplace/internal/adapter/repository/postgres"
	"github.com/WorstGen/land-marketplace/internal/adapter/repository/sqlite"
	"github.com/WorstGen/land-marketplace/internal/core/domain"
	"github.com/WorstGen/land-marketplace/internal/core/ports"
	"github.com/WorstGen/land-marketplace/internal/core/services"
	"github.com/WorstGen/land-marketplace/internal/platform/config"
	"github.com/WorstGen/land-marketplace/internal/platform/database"
)

func loadConfig() (config.Config, error) {
	return config.Load(configPath, dotEnvPath)
}

func ledgerConfig(cfg config.Config) domain.LedgerConfig {
	return domain.LedgerConfig{
		SeedArea:      cfg.Market.SeedArea,
		SeedFirstPlot: cfg.Market.SeedFirstPlot,
		PlotsPerArea:  cfg.Market.PlotsPerArea,
		SeedPrice:     config.Decimal(cfg.Market.SeedPrice),
		PriceStep:     config.Decimal(cfg.Market.PriceStep),
	}
}

func serviceOptions(cfg config.Config) services.Options {
	return services.Options{
		RequireConfirmation: cfg.Payments.RequireConfirmation,
		ValidateAddresses:   cfg.Payments.ValidateAddresses,
		AllowAirdrop:        cfg.Chain.AllowAirdrop,
		AirdropAmount:       config.Decimal(cfg.Chain.AirdropAmount),
		TokenUSD:            config.Decimal(cfg.Payments.TokenUSD),
		FallbackSOLUSD:      config.Decimal(cfg.Payments.FallbackSOLUSD),
		Treasury:            cfg.Monitor.Treasury,
		TokenMint:           cfg.Monitor.TokenMint,
		SOLTolerance:        domain.DefaultSOLTolerance,
		TokenTolerance:      domain.DefaultTokenTolerance,
	}
}

// openRepository returns the purchase log selected by storage.driver and a
// function that releases it.
func openRepository(ctx context.Context, cfg config.StorageConfig) (ports.PurchaseRepository, func(), error) {
	switch cfg.Driver {
	case config.StoragePostgres:
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.Name,
			SSLMode:  cfg.SSLMode,
		})
		if err != nil {
			return nil, nil, err
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		repo := postgres.NewPurchaseRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}

		return repo, func() { db.Close() }, nil

	case config.StorageSQLite:
		db, err := database.NewSQLiteDB(cfg.Path)
		if err != nil {
			return nil, nil, err
		}

		repo, err := sqlite.NewPurchaseRepository(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}

		return repo, func() { db.Close() }, nil

	case config.StorageBolt:
		store, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { store.Close() }, nil

	case config.StorageMemory:
		log.Println("Using in-memory purchase log, nothing will survive a restart.")
		return memory.NewPurchaseRepository(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// openLedger restores the ledger from the configured purchase log.
func openLedger(ctx context.Context, cfg config.Config) (*services.LandService, func(), error) {
	ledger, err := domain.NewLedger(ledgerConfig(cfg))
	if err != nil {
		return nil, nil, err
	}

	repo, closeRepo, err := openRepository(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}

	svc := services.NewLandService(ledger, repo, serviceOptions(cfg))
	if err := svc.Restore(ctx); err != nil {
		closeRepo()
		return nil, nil, err
	}

	return svc, closeRepo, nil
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/repository"
	"github.com/noah-isme/scholarship-api/internal/service"
	"github.com/noah-isme/scholarship-api/pkg/config"
	"github.com/noah-isme/scholarship-api/pkg/database"
	"github.com/noah-isme/scholarship-api/pkg/logger"
)

func main() {
	path := flag.String("file", "schemes.yaml", "scheme catalogue to load")
	timeout := flag.Duration("timeout", time.Minute, "overall seeding timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	f, err := os.Open(*path)
	if err != nil {
		logr.Fatal("failed to open catalogue", zap.String("file", *path), zap.Error(err))
	}
	cat, err := parseCatalogue(f)
	f.Close()
	if err != nil {
		logr.Fatal("invalid catalogue", zap.String("file", *path), zap.Error(err))
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	createdBy := cat.CreatedBy
	if createdBy == "" {
		createdBy = cfg.Chain.OwnerAddress
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	schemes := service.NewSchemeService(repository.NewSchemeRepository(db), nil, nil, nil, logr)
	var inserted, updated int
	for _, req := range cat.Schemes {
		created, err := schemes.Seed(ctx, createdBy, req)
		if err != nil {
			logr.Fatal("failed to seed scheme", zap.String("scheme", req.Name), zap.Error(err))
		}
		if created {
			inserted++
		} else {
			updated++
		}
	}
	logr.Info("scheme catalogue seeded", zap.Int("inserted", inserted), zap.Int("updated", updated))
}

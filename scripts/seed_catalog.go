package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"babyprep/backend/internal/catalog"
	"babyprep/backend/internal/config"
	"babyprep/backend/internal/db"
	"babyprep/backend/internal/logger"
	"babyprep/backend/internal/server"
)

func main() {
	var (
		mode        string
		database    string
		catalogPath string
		timezone    string
	)

	flag.StringVar(&mode, "mode", "seed", "seed or cleanup")
	flag.StringVar(&database, "db", "", "DATABASE_URL override")
	flag.StringVar(&catalogPath, "catalog", "", "catalog YAML path (default: embedded presets)")
	flag.StringVar(&timezone, "tz", "", "session timezone override (default: DB_TIMEZONE)")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	dbURL := strings.TrimSpace(database)
	if dbURL == "" {
		dbURL = cfg.DatabaseURL
	}
	tz := strings.TrimSpace(timezone)
	if tz == "" {
		tz = cfg.DBTimezone
	}

	var (
		cat *catalog.Catalog
		err error
	)
	if strings.TrimSpace(catalogPath) == "" {
		cat, err = catalog.Default()
	} else {
		cat, err = catalog.Load(catalogPath)
	}
	if err != nil {
		log.WithError(err).Fatal("load catalog")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, dbURL, tz)
	if err != nil {
		log.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "cleanup", "delete", "remove":
		deleted, err := cleanupCatalog(ctx, pool, cat)
		if err != nil {
			log.WithError(err).Fatal("cleanup")
		}
		fmt.Printf("cleanup complete deleted=%d\n", deleted)
	case "seed":
		if cfg.AutoMigrate {
			if err := db.EnsureSchema(ctx, pool); err != nil {
				log.WithError(err).Fatal("apply schema")
			}
		}
		summary, err := server.SeedCatalog(ctx, pool, cat)
		if err != nil {
			log.WithError(err).Fatal("seed catalog")
		}
		log.WithFields(logrus.Fields{
			"nutrients":   summary.Nutrients,
			"supplements": summary.Supplements,
			"tips":        summary.Tips,
		}).Info("catalog seeded")
	default:
		fmt.Fprintf(os.Stderr, "unsupported mode %q (use seed or cleanup)\n", mode)
		os.Exit(2)
	}
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// cleanupCatalog removes catalog rows that no user subscription still references.
func cleanupCatalog(ctx context.Context, conn beginner, cat *catalog.Catalog) (int64, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var deleted int64
	for _, nutrient := range cat.Nutrients {
		for _, option := range nutrient.Supplements {
			tag, err := tx.Exec(
				ctx,
				`DELETE FROM "Supplement" s
				 WHERE s.id = $1
				   AND NOT EXISTS (SELECT 1 FROM "UserSupplement" us WHERE us."supplementId" = s.id)`,
				option.ID,
			)
			if err != nil {
				return 0, fmt.Errorf("delete supplement %s: %w", option.ID, err)
			}
			deleted += tag.RowsAffected()
		}
		tag, err := tx.Exec(
			ctx,
			`DELETE FROM "Nutrient" n
			 WHERE n.id = $1
			   AND NOT EXISTS (SELECT 1 FROM "SupplementNutrient" sn WHERE sn."nutrientId" = n.id)`,
			nutrient.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("delete nutrient %s: %w", nutrient.ID, err)
		}
		deleted += tag.RowsAffected()
	}
	for _, tip := range cat.Tips {
		tag, err := tx.Exec(ctx, `DELETE FROM "Tip" WHERE content = $1`, tip)
		if err != nil {
			return 0, fmt.Errorf("delete tip: %w", err)
		}
		deleted += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return deleted, nil
}

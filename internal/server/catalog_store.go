package server

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"babyprep/backend/internal/catalog"
)

type SeedSummary struct {
	Nutrients   int
	Supplements int
	Tips        int
}

// upsertCatalogEntry mirrors one catalog nutrient and supplement option into the relational tables
// so user subscriptions can reference them.
func upsertCatalogEntry(ctx context.Context, q dbQuerier, nutrient catalog.Nutrient, option catalog.SupplementOption) error {
	if _, err := q.Exec(
		ctx,
		`INSERT INTO "Nutrient" (id, name, description, stage, "recommendedPeriod")
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   description = EXCLUDED.description,
		   stage = EXCLUDED.stage,
		   "recommendedPeriod" = EXCLUDED."recommendedPeriod"`,
		nutrient.ID,
		nutrient.Nutrient,
		nutrient.Description,
		nutrient.Stage,
	); err != nil {
		return fmt.Errorf("upsert nutrient %s: %w", nutrient.ID, err)
	}
	if _, err := q.Exec(
		ctx,
		`INSERT INTO "Supplement" (id, name, "dosageInfo", schedule, caution)
		 VALUES ($1, $2, $3, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   "dosageInfo" = EXCLUDED."dosageInfo",
		   schedule = EXCLUDED.schedule,
		   caution = EXCLUDED.caution`,
		option.ID,
		option.Name,
		option.Schedule,
		option.Caution,
	); err != nil {
		return fmt.Errorf("upsert supplement %s: %w", option.ID, err)
	}
	if _, err := q.Exec(
		ctx,
		`INSERT INTO "SupplementNutrient" ("supplementId", "nutrientId")
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		option.ID,
		nutrient.ID,
	); err != nil {
		return fmt.Errorf("link supplement %s: %w", option.ID, err)
	}
	return nil
}

// SeedCatalog writes every catalog nutrient, supplement option and tip in one transaction.
func SeedCatalog(ctx context.Context, pool *pgxpool.Pool, cat *catalog.Catalog) (SeedSummary, error) {
	summary := SeedSummary{}
	err := withTx(ctx, pool, func(tx pgx.Tx) error {
		for _, nutrient := range cat.Nutrients {
			for _, option := range nutrient.Supplements {
				if err := upsertCatalogEntry(ctx, tx, nutrient, option); err != nil {
					return err
				}
				summary.Supplements++
			}
			summary.Nutrients++
		}
		for _, tip := range cat.Tips {
			tag, err := tx.Exec(
				ctx,
				`INSERT INTO "Tip" (id, content, category, "createdAt")
				 VALUES ($1, $2, 'general', NOW())
				 ON CONFLICT (content) DO NOTHING`,
				uuid.NewString(),
				tip,
			)
			if err != nil {
				return fmt.Errorf("insert tip: %w", err)
			}
			summary.Tips += int(tag.RowsAffected())
		}
		return nil
	})
	return summary, err
}

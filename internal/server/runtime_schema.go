package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type schemaColumn struct {
	table  string
	column string
}

var requiredColumns = []schemaColumn{
	{table: "User", column: "passwordHash"},
	{table: "User", column: "socialId"},
	{table: "UserProfile", column: "initialWeight"},
	{table: "PregnancyInfo", column: "ovulationWeekStart"},
	{table: "PeriodInfo", column: "lastPeriod"},
	{table: "UserSetting", column: "notifyTime"},
	{table: "UserSupplement", column: "timeOfDay"},
	{table: "CustomSupplement", column: "isActive"},
	{table: "CalendarEvent", column: "linkedSupplementId"},
	{table: "Notification", column: "isSent"},
	{table: "DoctorsNote", column: "visitDate"},
	{table: "Tip", column: "content"},
}

func ValidateRuntimeSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	for _, item := range requiredColumns {
		ok, err := columnExists(ctx, pool, item.table, item.column)
		if err != nil {
			return fmt.Errorf(
				"failed checking schema for %s.%s: %w",
				item.table,
				item.column,
				err,
			)
		}
		if !ok {
			return fmt.Errorf(
				"required column %s.%s is missing; start with AUTO_MIGRATE=true or apply schema.sql",
				item.table,
				item.column,
			)
		}
	}

	return nil
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	table := strings.TrimSpace(tableName)
	column := strings.TrimSpace(columnName)
	if table == "" || column == "" {
		return false, fmt.Errorf("table/column must not be empty")
	}
	var exists bool
	err := pool.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.columns
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		     AND lower(column_name) = lower($2)
		 )`,
		table,
		column,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

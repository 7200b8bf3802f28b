// Package db opens the PostgreSQL connection and keeps the relational schema
// up to date.
package db

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Open connects to PostgreSQL at dsn and applies the schema migration.
func Open(ctx context.Context, dsn string) (*entsql.Driver, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database url is not set")
	}
	drv, err := entsql.Open(dialect.Postgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to postgres: %w", err)
	}
	if err := drv.DB().PingContext(ctx); err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := Migrate(ctx, drv); err != nil {
		drv.Close()
		return nil, err
	}
	logrus.Info("successfully connected to postgres")
	return drv, nil
}

// Migrate creates missing tables, columns and indexes.
func Migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("failed creating migration: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("failed creating schema resources: %w", err)
	}
	return nil
}

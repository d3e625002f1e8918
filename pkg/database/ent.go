package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/Alijeyrad/ambulanz_backend/config"
)

// NewEntDriver opens the database from central config and wraps it in an
// ent SQL driver.
func NewEntDriver(cfg config.DatabaseConfig) (*entsql.Driver, error) {
	return NewEntDriverFromConfig(FromCentralConfig(cfg))
}

// NewEntDriverFromConfig opens the database from package Config.
func NewEntDriverFromConfig(cfg Config) (*entsql.Driver, error) {
	db, err := openSQLDB(cfg)
	if err != nil {
		return nil, err
	}

	return entsql.OpenDB(dialect.Postgres, db), nil
}

// MigrateEnt creates or updates the given tables.
func MigrateEnt(ctx context.Context, drv dialect.Driver, tables ...*schema.Table) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

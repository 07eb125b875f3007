package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/veronewra/openverse/internal/server/applications"
	"github.com/veronewra/openverse/internal/server/migrations"
	"github.com/veronewra/openverse/internal/server/verifications"
)

type PostgresRepositoryManager struct {
	db            *sql.DB
	applications  applications.Repository
	verifications verifications.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Applications() applications.Repository {
	return m.applications
}

func (m *PostgresRepositoryManager) Verifications() verifications.Repository {
	return m.verifications
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	applications, err := applications.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("application repo creation error: %w", err)
	}

	verifications, err := verifications.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("verification repo creation error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:            db,
		applications:  applications,
		verifications: verifications,
	}

	err = m.RunMigrations(context.Background())
	if err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}

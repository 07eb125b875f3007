package db

import (
	"context"
	"database/sql"

	"github.com/veronewra/openverse/internal/server/applications"
	"github.com/veronewra/openverse/internal/server/verifications"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Applications() applications.Repository
	Verifications() verifications.Repository
}

package applications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/veronewra/openverse/internal/common"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, app *Application) (*Application, error) {

	query :=
		`INSERT INTO applications (client_id, secret_hash, name, contact_email, verified, rate_tier)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		app.ClientID, app.SecretHash, app.Name, app.ContactEmail, app.Verified, app.RateTier).
		Scan(&app.ID, &app.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return app, nil
}

func (r *PostgresRepository) GetByClientID(ctx context.Context, clientID string) (*Application, error) {
	query :=
		`SELECT id, client_id, secret_hash, name, contact_email, verified, rate_tier, created_at
		 FROM applications
		 WHERE client_id = $1
		 `

	app := &Application{}
	err := r.db.QueryRowContext(ctx, query, clientID).
		Scan(&app.ID, &app.ClientID, &app.SecretHash, &app.Name, &app.ContactEmail,
			&app.Verified, &app.RateTier, &app.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return app, nil
}

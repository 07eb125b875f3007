package verifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/veronewra/openverse/internal/common"
	"github.com/veronewra/openverse/internal/dbx"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, code *VerificationCode) error {

	query :=
		`INSERT INTO verification_codes (code, application_id, expires_at)
         VALUES ($1, $2, $3)
		 `

	_, err := r.db.ExecContext(ctx, query, code.Code, code.ApplicationID, code.ExpiresAt)

	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

// Consume runs a single transaction: the DELETE claims the code (only one
// concurrent transaction can get the row back) and the UPDATE promotes the
// application. Rows expired as of now are treated the same as absent ones.
func (r *PostgresRepository) Consume(ctx context.Context, code string, now time.Time) (string, error) {

	var applicationID string

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		query :=
			`DELETE FROM verification_codes
			 WHERE code = $1 AND expires_at > $2
			 RETURNING application_id
			 `

		err := tx.QueryRowContext(ctx, query, code, now).Scan(&applicationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrorInvalidCode
			}
			return fmt.Errorf("error performing sql request: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE applications SET verified = true WHERE id = $1`, applicationID)
		if err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}

		return nil
	})

	if err != nil {
		return "", err
	}

	return applicationID, nil
}

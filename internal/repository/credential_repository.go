package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"postqueue/internal/errdefs"
	"postqueue/internal/models"
)

type CredentialRepository interface {
	Get(ctx context.Context) (*models.Credential, error)
	Upsert(ctx context.Context, cred *models.Credential) error
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Get(ctx context.Context) (*models.Credential, error) {
	query := `SELECT id, account_id, access_token, token_expires_at, updated_at FROM credentials ORDER BY id LIMIT 1`

	var cred models.Credential
	err := r.db.QueryRowContext(ctx, query).Scan(
		&cred.ID, &cred.AccountID, &cred.AccessToken, &cred.TokenExpiresAt, &cred.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errdefs.ErrNotFound
		}
		slog.Info(err.Error())
		return nil, errdefs.Storage("credential_get", err)
	}

	return &cred, nil
}

// Upsert keeps a single credential row: the queue publishes with one account.
func (r *credentialRepository) Upsert(ctx context.Context, cred *models.Credential) error {
	query := `
		INSERT INTO credentials (id, account_id, access_token, token_expires_at, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET account_id = EXCLUDED.account_id,
			access_token = EXCLUDED.access_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, cred.AccountID, cred.AccessToken, cred.TokenExpiresAt, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return errdefs.Storage("credential_upsert", err)
	}
	return nil
}

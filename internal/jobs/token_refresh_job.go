package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"postqueue/internal/errdefs"
	"postqueue/internal/repository"
	"postqueue/internal/service"
)

type TokenRefreshJob struct {
	cr repository.CredentialRepository
	ig service.InstagramService
}

func NewTokenRefreshJob(cr repository.CredentialRepository, ig service.InstagramService) *TokenRefreshJob {
	return &TokenRefreshJob{cr: cr, ig: ig}
}

// RefreshTokens renews the stored long-lived token when it expires within a
// day. Long-lived Instagram tokens last ~60 days; refreshing early keeps a
// flaky connection from orphaning the queue.
func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	cred, err := j.cr.Get(ctx)
	if err != nil {
		if !errors.Is(err, errdefs.ErrNotFound) {
			slog.Info(err.Error())
		}
		return
	}

	if time.Until(cred.TokenExpiresAt) > 24*time.Hour {
		return
	}

	if err := j.ig.RefreshToken(ctx); err != nil {
		slog.Info("Unable to refresh token for Instagram", "error", err)
	}
}

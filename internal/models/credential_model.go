package models

import "time"

// Credential is the Instagram account the queue publishes with.
// AccessToken is stored AES-GCM encrypted.
type Credential struct {
	ID             int64     `db:"id"`
	AccountID      string    `db:"account_id"`
	AccessToken    string    `db:"access_token"`
	TokenExpiresAt time.Time `db:"token_expires_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

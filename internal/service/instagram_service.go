package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	config "postqueue/configs"
	"postqueue/internal/errdefs"
	"postqueue/internal/models"
	"postqueue/internal/repository"
	"postqueue/pkg/utils"
)

// InstagramService talks to the Graph API: the two publish steps the pipeline
// needs, plus the OAuth plumbing that keeps the long-lived token usable.
type InstagramService interface {
	CreateContainer(ctx context.Context, mediaURL, caption string) (string, error)
	PublishContainer(ctx context.Context, containerID string) (string, error)
	AuthURL(state string) string
	Callback(ctx context.Context, code string) error
	RefreshToken(ctx context.Context) error
}

const (
	graphAPIBase    = "https://graph.instagram.com/v21.0"
	graphAPITimeout = 30 * time.Second
)

type instagramService struct {
	cfg    config.Config
	cr     repository.CredentialRepository
	client *http.Client
}

func NewInstagramService(cfg config.Config, cr repository.CredentialRepository) InstagramService {
	return &instagramService{
		cfg: cfg,
		cr:  cr,
		// A hung Graph API call must not wedge a record in PROCESSING forever.
		client: &http.Client{Timeout: graphAPITimeout},
	}
}

func (s *instagramService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.InstagramClientID,
		ClientSecret: s.cfg.InstagramClientSecret,
		RedirectURL:  s.cfg.InstagramRedirectURI,
		Scopes:       []string{"instagram_business_basic", "instagram_business_content_publish"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://api.instagram.com/oauth/authorize",
			TokenURL: "https://api.instagram.com/oauth/access_token",
		},
	}
}

func (s *instagramService) AuthURL(state string) string {
	return s.oauthConfig().AuthCodeURL(state)
}

// Callback exchanges the code, upgrades it to a long-lived token and stores it
// encrypted.
func (s *instagramService) Callback(ctx context.Context, code string) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	token, err := s.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	longLived, expiresAt, err := s.exchangeLongLivedToken(ctx, token.AccessToken)
	if err != nil {
		return err
	}

	encrypted, err := utils.Encrypt([]byte(longLived), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	return s.cr.Upsert(ctx, &models.Credential{
		AccountID:      s.cfg.InstagramAccountID,
		AccessToken:    encrypted,
		TokenExpiresAt: expiresAt,
	})
}

func (s *instagramService) exchangeLongLivedToken(ctx context.Context, shortLived string) (string, time.Time, error) {
	url := fmt.Sprintf(
		"https://graph.instagram.com/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		s.cfg.InstagramClientSecret, shortLived,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", time.Time{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, fmt.Errorf("failed to get long-lived token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, fmt.Errorf("error response from Instagram: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, fmt.Errorf("failed to decode long-lived token response: %w", err)
	}

	return result.AccessToken, time.Now().Add(time.Duration(result.ExpiresIn) * time.Second), nil
}

// RefreshToken renews the stored long-lived token before it expires.
func (s *instagramService) RefreshToken(ctx context.Context) error {
	accessToken, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf(
		"https://graph.instagram.com/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		accessToken,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	if result.AccessToken == "" {
		return errors.New("no access token returned from Instagram")
	}

	encrypted, err := utils.Encrypt([]byte(result.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	return s.cr.Upsert(ctx, &models.Credential{
		AccountID:      s.cfg.InstagramAccountID,
		AccessToken:    encrypted,
		TokenExpiresAt: time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	})
}

func (s *instagramService) accessToken(ctx context.Context) (string, error) {
	cred, err := s.cr.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("no instagram credential: %w", err)
	}
	return utils.Decrypt(cred.AccessToken, []byte(s.cfg.SecretKey))
}

// CreateContainer stages the media on Instagram's side and returns the
// container id. An empty id in a 200 response is still a failure.
func (s *instagramService) CreateContainer(ctx context.Context, mediaURL, caption string) (string, error) {
	accessToken, err := s.accessToken(ctx)
	if err != nil {
		return "", errdefs.RemoteAPI("container", err)
	}

	payload := map[string]interface{}{
		"image_url":    mediaURL,
		"caption":      caption,
		"access_token": accessToken,
	}

	id, err := s.postForID(ctx, fmt.Sprintf("%s/%s/media", graphAPIBase, s.cfg.InstagramAccountID), payload)
	if err != nil {
		return "", errdefs.RemoteAPI("container", err)
	}
	return id, nil
}

// PublishContainer turns a staged container into a live post and returns the
// remote post id.
func (s *instagramService) PublishContainer(ctx context.Context, containerID string) (string, error) {
	accessToken, err := s.accessToken(ctx)
	if err != nil {
		return "", errdefs.RemoteAPI("publish", err)
	}

	payload := map[string]interface{}{
		"creation_id":  containerID,
		"access_token": accessToken,
	}

	id, err := s.postForID(ctx, fmt.Sprintf("%s/%s/media_publish", graphAPIBase, s.cfg.InstagramAccountID), payload)
	if err != nil {
		return "", errdefs.RemoteAPI("publish", err)
	}
	return id, nil
}

func (s *instagramService) postForID(ctx context.Context, url string, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status code from Instagram: %d (%s)", resp.StatusCode, respBody)
	}

	var result struct {
		ID string `json:"id"`
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}

	if result.ID == "" {
		return "", errors.New("no media ID returned from Instagram")
	}
	return result.ID, nil
}

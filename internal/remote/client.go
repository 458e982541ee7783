package remote

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/confbuddy/companion-api/internal/models"
	"github.com/confbuddy/companion-api/internal/store"
	"golang.org/x/time/rate"
)

// StatusComeBackLater is the backend's non-standard "voting window not
// open yet" status.
const StatusComeBackLater = 477

// Client is the typed RPC surface to the companion backend. It shapes
// requests and decodes responses; retry/re-queue decisions for mutations
// belong to the caller.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	adminSecret string
	maxAttempts int
	pace        *rate.Limiter
}

// Config holds configuration for the backend client.
type Config struct {
	BaseURL     string
	Token       string // installation's anonymous identity
	AdminSecret string
	Timeout     time.Duration
	MaxAttempts int           // retry budget for idempotent reads
	RetryDelay  time.Duration // fixed pacing between read retries
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		adminSecret: cfg.AdminSecret,
		maxAttempts: cfg.MaxAttempts,
		pace:        rate.NewLimiter(rate.Every(cfg.RetryDelay), 1),
	}
}

// SetToken installs the anonymous identity used for authorized calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// HasIdentity reports whether an anonymous identity is established.
// Authorized calls made without one short-circuit to empty results.
func (c *Client) HasIdentity() bool {
	return c.token != ""
}

// do performs one request attempt. Network failures and 5xx responses
// come back as TransientError; auth and window statuses map to their
// sentinels; remaining non-2xx statuses are permanent rejections.
func (c *Client) do(ctx context.Context, method, path string, body, out any, admin bool) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case admin && c.adminSecret != "":
		req.Header.Set("Authorization", "Bearer "+c.adminSecret)
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == StatusComeBackLater:
		return ErrComeBackLater
	case resp.StatusCode >= 500:
		return &TransientError{Err: fmt.Errorf("server returned status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		msg := payload.Error
		if msg == "" {
			msg = payload.Message
		}
		return &RejectionError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// get retries transient failures with fixed pacing; idempotent reads get
// a generous retry budget.
func (c *Client) get(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.pace.Wait(ctx); err != nil {
				return err
			}
			log.Printf("[DEBUG] retrying GET %s (attempt %d): %v", path, attempt+1, lastErr)
		}
		err := c.do(ctx, http.MethodGet, path, nil, out, false)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// Sign registers or validates this installation's anonymous identity.
// Both 201 (new) and 409 (already registered) count as signed.
func (c *Client) Sign(ctx context.Context) (bool, error) {
	if !c.HasIdentity() {
		return false, nil
	}

	encoded, err := json.Marshal(SignRequest{InstallationID: c.token})
	if err != nil {
		return false, fmt.Errorf("encoding sign request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sign", bytes.NewReader(encoded))
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusConflict:
		return true, nil
	case http.StatusUnauthorized:
		return false, ErrUnauthorized
	default:
		if resp.StatusCode >= 500 {
			return false, &TransientError{Err: fmt.Errorf("server returned status %d", resp.StatusCode)}
		}
		return false, &RejectionError{StatusCode: resp.StatusCode}
	}
}

// ServerTime fetches the server clock in epoch milliseconds.
func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	var out TimeResponse
	if err := c.get(ctx, "/time", &out); err != nil {
		return 0, err
	}
	return out.Time, nil
}

// SetServerTime overrides the server clock for testing (admin only).
// A nil value clears the override.
func (c *Client) SetServerTime(ctx context.Context, millis *int64) error {
	path := "/time/null"
	if millis != nil {
		path = fmt.Sprintf("/time/%d", *millis)
	}
	return c.do(ctx, http.MethodPost, path, nil, nil, true)
}

// Votes returns this installation's server-side votes.
func (c *Client) Votes(ctx context.Context) ([]VotePayload, error) {
	if !c.HasIdentity() {
		return nil, nil
	}
	var out []VotePayload
	if err := c.get(ctx, "/vote", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostVote submits or retracts a vote. 477 maps to ErrComeBackLater.
func (c *Client) PostVote(ctx context.Context, sessionID string, score *int) (bool, error) {
	if !c.HasIdentity() {
		return false, nil
	}
	err := c.do(ctx, http.MethodPost, "/vote", VotePayload{SessionID: sessionID, Score: score}, nil, false)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Favorites returns this installation's server-side favorites.
func (c *Client) Favorites(ctx context.Context) ([]FavoritePayload, error) {
	if !c.HasIdentity() {
		return nil, nil
	}
	var out []FavoritePayload
	if err := c.get(ctx, "/favorite", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PostFavorite(ctx context.Context, sessionID string, isFavorite bool) (bool, error) {
	if !c.HasIdentity() {
		return false, nil
	}
	err := c.do(ctx, http.MethodPost, "/favorite", FavoritePayload{SessionID: sessionID, IsFavorite: isFavorite}, nil, false)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) PostFeedback(ctx context.Context, sessionID, value string) (bool, error) {
	if !c.HasIdentity() {
		return false, nil
	}
	err := c.do(ctx, http.MethodPost, "/feedback", FeedbackPayload{SessionID: sessionID, Value: value}, nil, false)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Conference fetches the public full-schedule snapshot.
func (c *Client) Conference(ctx context.Context) (*ConferenceSnapshot, error) {
	var out ConferenceSnapshot
	if err := c.get(ctx, "/conference", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Bulk snapshots.

func (c *Client) Sessions(ctx context.Context) ([]models.Session, error) {
	var out []models.Session
	if err := c.get(ctx, "/get/sessions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Speakers(ctx context.Context) ([]models.Speaker, error) {
	var out []models.Speaker
	if err := c.get(ctx, "/get/speakers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Rooms(ctx context.Context) ([]models.Room, error) {
	var out []models.Room
	if err := c.get(ctx, "/get/rooms", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.get(ctx, "/get/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SessionSpeakers(ctx context.Context) ([]models.SessionSpeaker, error) {
	var out []models.SessionSpeaker
	if err := c.get(ctx, "/get/session-speakers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SessionCategories(ctx context.Context) ([]models.SessionCategory, error) {
	var out []models.SessionCategory
	if err := c.get(ctx, "/get/session-categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Deltas: entities changed after the given timestamp.

func (c *Client) SessionsSince(ctx context.Context, since int64) ([]models.Session, error) {
	if !c.HasIdentity() {
		return nil, nil
	}
	var out []models.Session
	if err := c.get(ctx, fmt.Sprintf("/sync/sessions?since=%d", since), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SpeakersSince(ctx context.Context, since int64) ([]models.Speaker, error) {
	if !c.HasIdentity() {
		return nil, nil
	}
	var out []models.Speaker
	if err := c.get(ctx, fmt.Sprintf("/sync/speakers?since=%d", since), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RoomsSince(ctx context.Context, since int64) ([]models.Room, error) {
	if !c.HasIdentity() {
		return nil, nil
	}
	var out []models.Room
	if err := c.get(ctx, fmt.Sprintf("/sync/rooms?since=%d", since), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CategoriesSince(ctx context.Context, since int64) ([]models.Category, error) {
	if !c.HasIdentity() {
		return nil, nil
	}
	var out []models.Category
	if err := c.get(ctx, fmt.Sprintf("/sync/categories?since=%d", since), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Mutations. Not retried here: the sync coordinator decides whether to
// re-queue or drop.

func (c *Client) SendSession(ctx context.Context, session *models.Session) (*SyncResponse, error) {
	if !c.HasIdentity() {
		return nil, nil
	}
	var out SyncResponse
	if err := c.do(ctx, http.MethodPost, "/send/sessions", session, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendRoom(ctx context.Context, room *models.Room) (*SyncResponse, error) {
	if !c.HasIdentity() {
		return nil, nil
	}
	var out SyncResponse
	if err := c.do(ctx, http.MethodPost, "/send/rooms", room, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendSessionSpeaker(ctx context.Context, link *models.SessionSpeaker) (*SyncResponse, error) {
	if !c.HasIdentity() {
		return nil, nil
	}
	var out SyncResponse
	if err := c.do(ctx, http.MethodPost, "/send/session-speaker", link, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendSessionCategory(ctx context.Context, link *models.SessionCategory) (*SyncResponse, error) {
	if !c.HasIdentity() {
		return nil, nil
	}
	var out SyncResponse
	if err := c.do(ctx, http.MethodPost, "/send/session-categories", link, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// PodcastCatalog fetches the full catalog. The payload is gob-encoded
// for compactness.
func (c *Client) PodcastCatalog(ctx context.Context) ([]store.ChannelWithEpisodes, error) {
	return c.getCatalog(ctx, "/podcast/all")
}

// PodcastsSince fetches channels changed after the given timestamp.
func (c *Client) PodcastsSince(ctx context.Context, since int64) ([]store.ChannelWithEpisodes, error) {
	if !c.HasIdentity() {
		return nil, nil
	}
	return c.getCatalog(ctx, fmt.Sprintf("/sync/podcasts?since=%d", since))
}

func (c *Client) getCatalog(ctx context.Context, path string) ([]store.ChannelWithEpisodes, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.pace.Wait(ctx); err != nil {
				return nil, err
			}
		}
		channels, err := c.fetchCatalog(ctx, path)
		if err == nil {
			return channels, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) fetchCatalog(ctx context.Context, path string) ([]store.ChannelWithEpisodes, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode >= 500:
		return nil, &TransientError{Err: fmt.Errorf("server returned status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &RejectionError{StatusCode: resp.StatusCode}
	}

	var channels []store.ChannelWithEpisodes
	if err := gob.NewDecoder(resp.Body).Decode(&channels); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return channels, nil
}

// ImportPodcast uploads a full channel with episodes.
func (c *Client) ImportPodcast(ctx context.Context, payload store.ChannelWithEpisodes) (*ImportResponse, error) {
	var out ImportResponse
	if err := c.do(ctx, http.MethodPost, "/podcast/import", payload, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestPodcast asks the backend operators to add a feed.
func (c *Client) RequestPodcast(ctx context.Context, title, author, rssLink string) (bool, error) {
	if !c.HasIdentity() {
		return false, nil
	}
	err := c.do(ctx, http.MethodPost, "/podcast/sendRequest",
		PodcastRequest{Title: title, Author: author, RSSLink: rssLink}, nil, false)
	if err != nil {
		return false, err
	}
	return true, nil
}

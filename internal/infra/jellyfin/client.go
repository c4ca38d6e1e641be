// Package jellyfin provides a client for the Jellyfin HTTP API.
package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jfplayer/internal/domain/playlist"
	"github.com/osa030/jfplayer/internal/domain/track"
)

// TokenHeader carries the API key. It is only ever sent upstream.
const TokenHeader = "X-Emby-Token"

// ErrNotConfigured is returned when the base URL or API key is missing.
var ErrNotConfigured = errors.New("jellyfin not configured")

// StatusError is a non-success answer from the Jellyfin server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jellyfin responded %d: %s", e.Code, e.Message)
}

// Config represents Jellyfin client configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration // listing requests only; streams are bounded by the caller's context
	MaxRetries int
}

// Client is a Jellyfin API client.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	streamClient *http.Client
	maxRetries   int
	retryDelay   time.Duration
}

// New creates a new Jellyfin client.
// An incomplete configuration is accepted; calls then fail with ErrNotConfigured.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
		maxRetries:   retries,
		retryDelay:   500 * time.Millisecond,
	}
}

// Configured reports whether both the base URL and API key are set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// PlaylistItems retrieves the tracks of a playlist.
// Reference: GET /Playlists/{playlistId}/Items
func (c *Client) PlaylistItems(ctx context.Context, playlistID string, query url.Values) (*track.ItemsResponse[track.Track], error) {
	if playlistID == "" {
		return nil, errors.New("playlist id is required")
	}

	var resp track.ItemsResponse[track.Track]
	if err := c.getJSON(ctx, "Playlists/"+url.PathEscape(playlistID)+"/Items", query, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to get playlist items")
	}
	return &resp, nil
}

// CollectionFolders retrieves the top-level collection folders of a user.
// Reference: GET /Users/{userId}/Items?IncludeItemTypes=CollectionFolder
func (c *Client) CollectionFolders(ctx context.Context, userID string) ([]playlist.Folder, error) {
	query := url.Values{}
	query.Set("IncludeItemTypes", "CollectionFolder")

	var resp track.ItemsResponse[playlist.Folder]
	if err := c.getJSON(ctx, "Users/"+url.PathEscape(userID)+"/Items", query, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to get collection folders")
	}
	return resp.Items, nil
}

// UserItems retrieves playlist items visible to a user.
// Reference: GET /Users/{userId}/Items
func (c *Client) UserItems(ctx context.Context, userID string, query url.Values) (*track.ItemsResponse[playlist.Playlist], error) {
	var resp track.ItemsResponse[playlist.Playlist]
	if err := c.getJSON(ctx, "Users/"+url.PathEscape(userID)+"/Items", query, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to get user items")
	}
	return &resp, nil
}

// Stream opens the raw audio of a track. rangeHeader is forwarded verbatim when set.
// On success the caller owns resp.Body and must close it.
// Reference: GET /Audio/{itemId}/stream.mp3
func (c *Client) Stream(ctx context.Context, trackID, rangeHeader string) (*http.Response, error) {
	headers := http.Header{}
	if rangeHeader != "" {
		headers.Set("Range", rangeHeader)
	}
	return c.open(ctx, "Audio/"+url.PathEscape(trackID)+"/stream.mp3", nil, headers, "stream")
}

// Image opens the primary image of an item.
// Reference: GET /Items/{itemId}/Images/Primary
func (c *Client) Image(ctx context.Context, itemID string, query url.Values) (*http.Response, error) {
	return c.open(ctx, "Items/"+url.PathEscape(itemID)+"/Images/Primary", query, nil, "image")
}

// open issues a single unbuffered GET and checks the answer carries a body.
func (c *Client) open(ctx context.Context, path string, query url.Values, headers http.Header, what string) (*http.Response, error) {
	req, err := c.newRequest(ctx, path, query)
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", what)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &StatusError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("Failed to fetch %s (%d)", what, resp.StatusCode),
		}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		// A 2xx without content is still a failed fetch for the caller.
		return nil, &StatusError{
			Code:    http.StatusBadGateway,
			Message: fmt.Sprintf("Failed to fetch %s (empty body, %d)", what, resp.StatusCode),
		}
	}

	return resp, nil
}

// getJSON performs a GET with retries and decodes the JSON answer into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.retry(ctx, func() error {
		req, err := c.newRequest(ctx, path, query)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errors.Wrap(err, "failed to send request")
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{Code: resp.StatusCode, Message: readMessage(resp)}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "failed to parse response")
		}
		return nil
	})
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	reqURL := c.baseURL + "/" + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set(TokenHeader, c.apiKey)
	return req, nil
}

// retry retries an operation with linear backoff.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			zlog.Debug().Msgf("jellyfin: retrying after error (attempt %d/%d): %v", i+1, c.maxRetries, err)
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "retry aborted")
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return lastErr
}

// isRetryable checks if an error is retryable.
// Rate limits and server errors are; client errors and cancellations are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return false
}

// readMessage extracts a short error message from a failed response.
func readMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}
